package main

import "github.com/shawkym/jarvisui/cmd"

func main() {
	cmd.Execute()
}
