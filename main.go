package main

import "github.com/mrops-br/inventory-scanner/cmd"

func main() {
	cmd.Execute()
}
