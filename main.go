// The main package for the caselaw crawler executable.
package main

import "github.com/JakeFAU/caselaw-crawler/cmd"

func main() {
	cmd.Execute()
}
