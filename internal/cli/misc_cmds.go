// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stacklok/skills-kit/catalog"
	"github.com/stacklok/skills-kit/config"
	"github.com/stacklok/skills-kit/mcpserver"
	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/skills"
)

func (a *App) precommitCmd() *cobra.Command {
	var allowLocal bool
	cmd := &cobra.Command{
		Use:   "precommit",
		Short: "Fail when the lockfile references local-only sources",
		Long: `Precommit is meant for git hooks and CI. It fails when skills.lock.json
records file:// or localhost sources that collaborators cannot fetch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			found, err := p.inst.Precommit(allowLocal)
			for _, l := range found {
				a.warnf("local source: %s", l)
			}
			if err != nil {
				return err
			}
			if len(found) > 0 {
				a.printf("Allowing %d local source%s (--allow-local).\n", len(found), plural(len(found)))
				return nil
			}
			a.printf("No local sources in %s.\n", paths.LockfileName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowLocal, "allow-local", false, "report local sources without failing")
	return cmd
}

func (a *App) templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Scaffold new skills",
	}
	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create <install root>/<name>/SKILL.md",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			path, err := p.inst.Scaffold(args[0], description)
			if err != nil {
				return err
			}
			a.printf("Created %s\n", filepath.Join(path, skills.MarkerFile))
			a.printf("Publish it with 'sk sync-back %s --repo <repo>'.\n", args[0])
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "description for the front matter")
	cmd.AddCommand(create)
	return cmd
}

func (a *App) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve installed skills to agents over MCP (stdio)",
		Long: `mcp runs a read-only Model Context Protocol server on stdin/stdout. It
offers the skills_list, skills_search and skills_show tools and the
sk://quickstart resource, and notifies clients when the install root changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			cat := catalog.New(p.layout.ProjectRoot, p.layout.InstallRoot, a.log())
			srv := mcpserver.New(cat, a.Version, mcpserver.WithLogger(a.log()))
			a.log().Info("serving skills over stdio", "root", p.layout.InstallRoot)
			return srv.Serve(cmd.Context(), a.Stdin, a.Stdout)
		},
	}
}

func (a *App) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change user configuration",
		Long: `Keys: default_root, protocol (ssh|https), default_host, github_user,
default_repo. The file lives in $SK_CONFIG_DIR or the XDG config directory.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", v)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, dir, err := a.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(dir, cfg); err != nil {
				return err
			}
			a.printf("ok\n")
			return nil
		},
	})
	return cmd
}
