package main

import "github.com/tejashwikalptaru/pixeltunes/cmd"

func main() {
	cmd.Execute()
}
