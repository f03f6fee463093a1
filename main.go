package main

import "github.com/gaurav-prasanna/muniwatch/cmd"

func main() {
	cmd.Execute()
}
