package main

import "loraset/cmd"

func main() {
	cmd.Execute()
}
