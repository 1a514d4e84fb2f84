package main

import "github.com/jfmyers9/scrobbleloop/cmd"

func main() {
	cmd.Execute()
}
