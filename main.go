package main

import "github.com/sbchat/sbchat/cmd"

func main() {
	cmd.Execute()
}
