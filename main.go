package main

import "github.com/fotoklaser/face-finder/cmd"

func main() {
	cmd.Execute()
}
