package main

import (
	"go.pilab.hu/selfcare/cmd/selfcarectl/cmd"
)

func main() {
	cmd.Execute()
}
