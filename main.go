/*
Copyright © 2026 Paulo Suderio
*/
package main

import "github.com/suderio/delver/cmd"

func main() {
	cmd.Execute()
}
