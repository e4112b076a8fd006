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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ProjectNodeID is the fixed id of the workspace root node.
const ProjectNodeID = "project_root"

// DirectoryNodeID returns the id of the directory at the slash-separated
// relative path.
func DirectoryNodeID(relPath string) string {
	return "dir:" + relPath
}

// FileNodeID returns the id of the file at the slash-separated relative
// path.
func FileNodeID(relPath string) string {
	return "file:" + relPath
}

// CodeElementNodeID returns the id of a code element. The start line is
// part of the id so that same-named elements of the same type in one file
// stay distinct.
func CodeElementNodeID(relPath string, kind ElementType, name string, startLine int) string {
	return fmt.Sprintf("code:%s:%s:%s:%d", relPath, kind, name, startLine)
}

// EdgeID derives a deterministic edge id from its endpoints and relation.
// The parts are NUL-separated; NUL cannot occur in a file path.
func EdgeID(source, target string, rel Relation) string {
	sum := sha256.Sum256([]byte(source + "\x00" + target + "\x00" + rel.String()))
	return hex.EncodeToString(sum[:16])
}
