package main

import "github.com/Manu343726/rvsdb/cmd"

func main() {
	cmd.Execute()
}
