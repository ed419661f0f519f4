package main

import "github.com/lepinkainen/folio/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
