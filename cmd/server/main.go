package main

import "github.com/nguyentranbao-ct/kvrp/cmd"

func main() {
	cmd.Execute()
}
