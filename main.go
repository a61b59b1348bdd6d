package main

import "github.com/Mohsinsiddi/walletdash/cmd"

func main() {
	cmd.Execute()
}
