package main

import (
	"clanaudit/cmd"
)

func main() {
	cmd.Execute()
}
