//go:build ignore

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// setup_fixtures scaffolds the fixture projects the default benchmark
// suite runs against. Each fixture gets a composer.json matching its
// project flavor; the mutating-case fixture also gets a composer.lock
// so snapshot restore has both tracked files to work with.
//
// The fixture table below mirrors the embedded default suite. Existing
// fixture files are left alone, so re-running is safe.
//
// Usage:
//
//	go run scripts/setup_fixtures.go [workdir]
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const projectsDir = "benchmarks"

// fixture describes one benchmark project to scaffold. Mutable marks
// the fixture the suite's install/update/require/remove cases rewrite,
// which therefore needs both tracked files present up front.
type fixture struct {
	name     string
	manifest string
	mutable  bool
}

// The simple-test manifest requires guzzlehttp/guzzle and omits psr/log
// because the default suite removes the former and requires the latter.
var fixtures = []fixture{
	{
		name: "complex-app",
		manifest: `{
    "name": "beaufort/complex-app",
    "description": "Large dependency graph fixture",
    "require": {
        "php": ">=8.1",
        "laravel/framework": "^10.0",
        "guzzlehttp/guzzle": "^7.8",
        "nesbot/carbon": "^2.72",
        "monolog/monolog": "^3.5",
        "doctrine/dbal": "^3.7",
        "league/flysystem": "^3.23",
        "predis/predis": "^2.2"
    },
    "require-dev": {
        "phpunit/phpunit": "^10.5",
        "mockery/mockery": "^1.6"
    }
}
`,
	},
	{
		name: "simple-laravel",
		manifest: `{
    "name": "beaufort/simple-laravel",
    "description": "Minimal Laravel skeleton fixture",
    "require": {
        "php": ">=8.1",
        "laravel/framework": "^10.0"
    }
}
`,
	},
	{
		name:    "simple-test",
		mutable: true,
		manifest: `{
    "name": "beaufort/simple-test",
    "description": "Small mutable fixture for install and remove runs",
    "require": {
        "php": ">=8.1",
        "guzzlehttp/guzzle": "^7.8",
        "monolog/monolog": "^3.5"
    }
}
`,
	},
	{
		name: "symfony-app",
		manifest: `{
    "name": "beaufort/symfony-app",
    "description": "Symfony project structure fixture",
    "require": {
        "php": ">=8.1",
        "symfony/console": "^6.4",
        "symfony/http-kernel": "^6.4",
        "symfony/yaml": "^6.4"
    }
}
`,
	},
}

// emptyLock is a minimal resolved lockfile. Running the baseline tool's
// install against the fixture replaces it with a real one.
const emptyLock = `{
    "_readme": [
        "This file locks the dependencies of your project to a known state"
    ],
    "packages": [],
    "packages-dev": [],
    "platform": {
        "php": ">=8.1"
    }
}
`

func main() {
	workDir := "."
	if len(os.Args) > 1 {
		workDir = os.Args[1]
	}

	root := filepath.Join(workDir, projectsDir)
	for _, fx := range fixtures {
		dir := filepath.Join(root, fx.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", dir, err)
			os.Exit(1)
		}

		wrote, err := writeIfAbsent(filepath.Join(dir, "composer.json"), fx.manifest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "write composer.json for %s: %v\n", fx.name, err)
			os.Exit(1)
		}
		if wrote {
			fmt.Printf("created %s/composer.json\n", fx.name)
		} else {
			fmt.Printf("kept existing %s/composer.json\n", fx.name)
		}

		if !fx.mutable {
			continue
		}
		wrote, err = writeIfAbsent(filepath.Join(dir, "composer.lock"), emptyLock)
		if err != nil {
			fmt.Fprintf(os.Stderr, "write composer.lock for %s: %v\n", fx.name, err)
			os.Exit(1)
		}
		if wrote {
			fmt.Printf("created %s/composer.lock\n", fx.name)
		}
	}

	fmt.Printf("fixtures ready under %s\n", root)
}

func writeIfAbsent(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	return true, os.WriteFile(path, []byte(content), 0o644)
}
