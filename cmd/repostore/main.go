package main

import "github.com/aweris/repostore/cmd/repostore/cmd"

func main() {
	cmd.Execute()
}
