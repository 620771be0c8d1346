package main

import "duo-dare-backend/cmd"

func main() {
	cmd.Run()
}
