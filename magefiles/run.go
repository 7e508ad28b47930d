//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Validates every description under assets/pipelines and exits.
func (Run) Validate() error {
	fmt.Println("Validate pipelines...")
	if _, err := executeCmd("go", withArgs("run", ".", "-dir", "assets/pipelines"), withStream()); err != nil {
		return err
	}
	return nil
}

// Keeps validating assets/pipelines as files change.
func (Run) Watch() error {
	fmt.Println("Watch pipelines...")
	if _, err := executeCmd("go", withArgs("run", ".", "-dir", "assets/pipelines", "-watch", "-log-level", "debug"), withStream()); err != nil {
		return err
	}
	return nil
}
