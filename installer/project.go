// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/skills"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/validation/name"
)

// InitResult reports what Init created.
type InitResult struct {
	CreatedRoot     bool
	CreatedLockfile bool
}

// Init creates the install root and an empty lockfile when they are absent.
// Existing state is left untouched.
func (i *Installer) Init() (*InitResult, error) {
	res := &InitResult{}
	if _, err := os.Stat(i.layout.InstallRoot); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(i.layout.InstallRoot, 0o750); err != nil {
			return nil, fmt.Errorf("creating install root: %w", err)
		}
		res.CreatedRoot = true
	}
	if !lockfile.Exists(i.layout.LockfilePath()) {
		if err := lockfile.Save(i.layout.LockfilePath(), lockfile.New(i.now())); err != nil {
			return nil, err
		}
		res.CreatedLockfile = true
	} else if _, err := lockfile.Load(i.layout.LockfilePath()); err != nil {
		return nil, err
	}
	i.logger.Debug("initialised project", "root", i.layout.InstallRoot, "created_root", res.CreatedRoot, "created_lockfile", res.CreatedLockfile)
	return res, nil
}

// LocalSource is a lock entry whose source only exists on this machine.
type LocalSource struct {
	InstallName string `json:"installName"`
	URL         string `json:"url"`
	SkillPath   string `json:"skillPath"`
}

func (l LocalSource) String() string {
	return fmt.Sprintf("%s -> %s (path: %s)", l.InstallName, l.URL, l.SkillPath)
}

// Precommit lists entries recorded from local sources. Unless allowLocal is
// set, finding any is a precondition failure. A project without a lockfile
// passes.
func (i *Installer) Precommit(allowLocal bool) ([]LocalSource, error) {
	if !lockfile.Exists(i.layout.LockfilePath()) {
		return nil, nil
	}
	lf, err := lockfile.Load(i.layout.LockfilePath())
	if err != nil {
		return nil, err
	}
	var found []LocalSource
	for _, e := range lf.Skills {
		if source.IsLocalURL(e.Source.URL, e.Source.Host) {
			found = append(found, LocalSource{InstallName: e.InstallName, URL: e.Source.URL, SkillPath: e.Source.SkillPath})
		}
	}
	if len(found) > 0 && !allowLocal {
		return found, skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "%d lock entr%s use local sources that collaborators cannot fetch", len(found), plural(len(found), "y", "ies")),
			"reinstall from an ssh or https URL, or pass --allow-local to bypass",
		)
	}
	return found, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type scaffoldFront struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Scaffold writes a new skill skeleton at <install root>/<name>/SKILL.md.
// The skill is not locked; publish it with sync-back.
func (i *Installer) Scaffold(skillName, description string) (string, error) {
	if err := name.ValidateInstallName(skillName); err != nil {
		return "", err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Describe what " + skillName + " does and when to use it."
	}
	dest := i.layout.InstallDir(skillName)
	if _, err := os.Stat(dest); err == nil {
		return "", skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "destination %s already exists", dest),
			"remove it first or pick a new skill name",
		)
	}

	front, err := yaml.Marshal(scaffoldFront{Name: skillName, Description: description})
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n\n%s\n\n## Instructions\n\n1. \n", skillName, description)
	if _, err := skills.Parse(buf.Bytes()); err != nil {
		return "", fmt.Errorf("generated SKILL.md is invalid: %w", err)
	}

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}
	path := filepath.Join(dest, skills.MarkerFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //#nosec G306 -- skill files are committed project content
		_ = os.RemoveAll(dest)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	i.logger.Info("scaffolded skill", "skill", skillName, "path", dest)
	return dest, nil
}
