package main

import "github.com/user/pagesum/cmd"

func main() {
	cmd.Execute()
}
