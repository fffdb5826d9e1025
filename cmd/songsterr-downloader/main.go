package main

import "go-songsterr-download/cmd/songsterr-downloader/cmd"

func main() {
	cmd.Execute()
}
