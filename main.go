package main

import "github.com/ValentinKolb/dPair/cmd"

func main() {
	cmd.Execute()
}
