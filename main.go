package main

import "github.com/KaramelBytes/retailseg/cmd"

func main() {
	cmd.Execute()
}
