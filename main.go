package main

import "github.com/drastik/donation-gateway/cmd"

func main() {
	cmd.Execute()
}
