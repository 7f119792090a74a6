package main

import "github.com/ACUCyS/weekly-ctf-bot/cmd"

func main() {
	cmd.Execute()
}
