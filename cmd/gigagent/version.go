package main

import "fmt"

type VersionCmd struct {
	root *Options
}

func (c *VersionCmd) Execute(_ []string) error {
	fmt.Fprintln(c.root.stdout, version)
	return nil
}
