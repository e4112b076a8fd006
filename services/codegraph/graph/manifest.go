// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
)

// npmTechStack maps a declared npm dependency to a tech-stack tag. Vue is
// handled separately because its tag depends on the major version.
var npmTechStack = map[string]string{
	"react":            "react",
	"next":             "nextjs",
	"nuxt":             "nuxt",
	"@angular/core":    "angular",
	"svelte":           "svelte",
	"express":          "express",
	"typescript":       "typescript",
	"vite":             "vite",
	"webpack":          "webpack",
	"jest":             "jest",
	"vitest":           "vitest",
	"pinia":            "pinia",
	"vuex":             "vuex",
	"redux":            "redux",
	"@reduxjs/toolkit": "redux",
	"tailwindcss":      "tailwind",
	"electron":         "electron",
}

// goTechStack maps a required Go module to a tech-stack tag.
var goTechStack = map[string]string{
	"github.com/gin-gonic/gin": "gin",
	"github.com/spf13/cobra":   "cobra",
	"google.golang.org/grpc":   "grpc",
}

// projectManifest is what could be learned from the workspace descriptors.
type projectManifest struct {
	pkg       *PackageInfo
	techStack []string
}

// readProjectManifest probes package.json and go.mod in the workspace.
// Missing or unparsable descriptors contribute nothing.
func readProjectManifest(workspace string) projectManifest {
	info := &PackageInfo{}
	stack := NewTagSet()
	found := false

	if data, err := os.ReadFile(filepath.Join(workspace, "package.json")); err == nil && gjson.ValidBytes(data) {
		found = true
		info.Name = gjson.GetBytes(data, "name").String()
		info.Version = gjson.GetBytes(data, "version").String()
		info.Description = gjson.GetBytes(data, "description").String()
		for _, section := range []string{"dependencies", "devDependencies", "peerDependencies"} {
			gjson.GetBytes(data, section).ForEach(func(key, value gjson.Result) bool {
				name := key.String()
				if name == "vue" {
					stack.Add(vueTag(value.String()))
				} else if tag, ok := npmTechStack[name]; ok {
					stack.Add(tag)
				}
				return true
			})
		}
	}

	if data, err := os.ReadFile(filepath.Join(workspace, "go.mod")); err == nil {
		if f, err := modfile.ParseLax("go.mod", data, nil); err == nil {
			found = true
			stack.Add("go")
			if f.Module != nil {
				info.ModulePath = f.Module.Mod.Path
			}
			if f.Go != nil {
				info.GoVersion = f.Go.Version
			}
			for _, r := range f.Require {
				if tag, ok := goTechStack[r.Mod.Path]; ok {
					stack.Add(tag)
				}
			}
		}
	}

	m := projectManifest{techStack: stack.Sorted()}
	if found {
		m.pkg = info
	}
	return m
}

// vueTag returns vue3 for a 3.x version constraint and vue2 otherwise.
func vueTag(constraint string) string {
	v := strings.TrimLeft(strings.TrimSpace(constraint), "^~>=<v ")
	major := semver.Major("v" + v)
	if major == "" && v != "" {
		major = "v" + v[:1]
	}
	if major == "v3" {
		return "vue3"
	}
	return "vue2"
}
