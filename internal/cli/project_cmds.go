// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"

	"github.com/stacklok/skills-kit/config"
	"github.com/stacklok/skills-kit/installer"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/selector"
)

func (a *App) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the install root and an empty skills.lock.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.inst.Init()
			if err != nil {
				return err
			}
			if res.CreatedLockfile {
				a.printf("Created %s\n", paths.LockfileName)
			}
			cfg := p.cfg
			if a.root != "" {
				cfg.DefaultRoot = a.root
			}
			if _, err := config.SaveIfMissing(p.configDir, cfg); err != nil {
				return err
			}
			a.printf("Initialized. Install root: %s\n", p.layout.InstallRoot)
			return nil
		},
	}
}

func (a *App) installCmd() *cobra.Command {
	var (
		req   installer.InstallRequest
		https bool
	)
	cmd := &cobra.Command{
		Use:   "install <repo> <skill-name>",
		Short: "Install a skill from a repository and lock its commit",
		Long: `Install copies one skill into the install root and records its source,
commit and digest in skills.lock.json.

<repo> is a registered alias, @owner/repo shorthand, an https or ssh URL,
or a file:// URL. Without --ref the skill tracks the default branch; a branch
is tracked, a tag or commit is pinned.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			ref, _, err := p.resolveRepo(args[0], https)
			if err != nil {
				return err
			}
			req.Repo, req.Name = ref, args[1]
			e, err := p.inst.Install(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printf("Installed %s from %s@%s into %s\n",
				e.InstallName, e.RepoID(), e.ShortCommit(), p.layout.RelInstallDir(e.InstallName))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Ref, "ref", "", "branch, tag or commit to install")
	cmd.Flags().StringVar(&req.Alias, "alias", "", "install under a different name")
	cmd.Flags().StringVar(&req.Path, "path", "", "skill path inside the repository, to pick between skills sharing a name")
	cmd.Flags().BoolVar(&https, "https", false, "expand shorthand to an https URL")
	return cmd
}

func (a *App) listCmd() *cobra.Command {
	var (
		asJSON bool
		filter string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed skills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			f, err := selector.Compile(filter)
			if err != nil {
				return err
			}
			rows := []installer.ListRow{}
			if lockfile.Exists(p.layout.LockfilePath()) {
				if rows, err = p.inst.List(installer.Query{Filter: f}); err != nil {
					return err
				}
			}
			if asJSON {
				return a.printJSON(rows)
			}
			st := a.styles()
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{st.name.Render(r.InstallName), r.Description})
			}
			a.table(table)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL expression over entry fields")
	return cmd
}

func (a *App) whereCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "where <name>",
		Short: "Print the directory of an installed skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			dir, err := p.inst.Where(args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", dir)
			return nil
		},
	}
}

func (a *App) checkCmd() *cobra.Command {
	var (
		asJSON bool
		diff   bool
		filter string
	)
	cmd := &cobra.Command{
		Use:   "check [name...]",
		Short: "Compare installed skills with their lock entries",
		Long: `Check reports ok, modified or missing for each lock entry. With --diff it
prints what changed locally relative to the locked commit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			f, err := selector.Compile(filter)
			if err != nil {
				return err
			}
			q := installer.Query{Names: args, Filter: f}
			if diff {
				return a.printDiffs(cmd, p, q, installer.DiffLocked)
			}
			return a.printCheck(p, q, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&diff, "diff", false, "show local edits as unified diffs")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL expression over entry fields")
	cmd.MarkFlagsMutuallyExclusive("json", "diff")
	return cmd
}

func (a *App) printCheck(p *project, q installer.Query, asJSON bool) error {
	rows, err := p.inst.Check(q)
	if err != nil {
		return err
	}
	if asJSON {
		return a.printJSON(rows)
	}
	st := a.styles()
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := []string{r.InstallName, st.state(r.State)}
		if r.Problem != "" {
			row = append(row, st.dim.Render(r.Problem))
		}
		table = append(table, row)
	}
	a.table(table)
	return nil
}

func (a *App) printDiffs(cmd *cobra.Command, p *project, q installer.Query, base installer.DiffBase) error {
	results, err := p.inst.Diff(cmd.Context(), q, base)
	if err != nil {
		return err
	}
	st := a.styles()
	for i, r := range results {
		if r.Err != nil {
			a.warnf("%s: %v", r.InstallName, r.Err)
			continue
		}
		if i > 0 {
			a.printf("\n")
		}
		against := lockfile.Short(r.Commit)
		if r.Branch != "" {
			against = r.Branch + "@" + against
		}
		a.printf("%s\n", st.name.Render(r.InstallName+" ("+r.Repo+" "+against+")"))
		a.printf("%s", r.Patch)
	}
	return nil
}

func (a *App) statusCmd() *cobra.Command {
	var (
		asJSON bool
		filter string
	)
	cmd := &cobra.Command{
		Use:   "status [name...]",
		Short: "Show local state and available upstream updates",
		Long: `Status shows each entry's state, its locked commit and, from the cache,
the current tip of its ref. Run 'sk update' first to refresh the cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			f, err := selector.Compile(filter)
			if err != nil {
				return err
			}
			return a.printStatus(cmd, p, installer.Query{Names: args, Filter: f}, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL expression over entry fields")
	return cmd
}

func (a *App) printStatus(cmd *cobra.Command, p *project, q installer.Query, asJSON bool) error {
	rows, err := p.inst.Status(cmd.Context(), q)
	if err != nil {
		return err
	}
	if asJSON {
		return a.printJSON(rows)
	}
	st := a.styles()
	table := [][]string{{"NAME", "STATE", "LOCKED", "UPSTREAM", "UPDATE"}}
	for _, r := range rows {
		upstream := r.Upstream
		if upstream == "" {
			upstream = "-"
		}
		update := r.Update
		if r.Pinned && update != "" {
			update += " (pinned)"
		}
		table = append(table, []string{r.InstallName, st.state(r.State), r.Locked, upstream, update})
	}
	a.table(table)
	return nil
}
