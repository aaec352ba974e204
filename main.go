/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/lapboard/cmd"

func main() {
	cmd.Execute()
}
