// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacklok/skills-kit/doctor"
	"github.com/stacklok/skills-kit/installer"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/skerr"
)

func (a *App) doctorCmd() *cobra.Command {
	var (
		summary, status, diff bool
		apply, asJSON         bool
	)
	cmd := &cobra.Command{
		Use:   "doctor [name...]",
		Short: "Analyze and repair the lockfile, cache and installs",
		Long: `Doctor reports duplicate install names, missing or modified installs,
missing cache mirrors or locked commits, and cache mirrors no entry uses.

With --apply it rebuilds missing installs from their locked commit, drops lock
entries that cannot be rebuilt (asking first on a terminal), prunes
unreferenced cache mirrors and normalizes the lockfile. Modified installs are
never overwritten.

--summary, --status and --diff print the check, status and upstream diff views.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			q := installer.Query{Names: args}
			switch {
			case summary:
				return a.printCheck(p, q, asJSON)
			case status:
				return a.printStatus(cmd, p, q, asJSON)
			case diff:
				return a.printDiffs(cmd, p, q, installer.DiffUpstream)
			}

			opts := doctor.Options{Names: args, Apply: apply}
			if apply && !asJSON && a.interactive() {
				opts.ConfirmDrop = a.confirmer("Drop the lock entry for '%s'? It cannot be rebuilt. [y/N] ")
			}
			d := doctor.New(p.inst, doctor.WithLogger(a.log()), doctor.WithClock(a.now))
			report, err := d.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(report)
			}
			a.printReport(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print ok/modified/missing per entry")
	cmd.Flags().BoolVar(&status, "status", false, "print state and upstream updates per entry")
	cmd.Flags().BoolVar(&diff, "diff", false, "diff installs against the current upstream tip")
	cmd.Flags().BoolVar(&apply, "apply", false, "perform safe repairs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.MarkFlagsMutuallyExclusive("summary", "status", "diff", "apply")
	cmd.MarkFlagsMutuallyExclusive("diff", "json")
	return cmd
}

func (a *App) confirmer(prompt string) func(string) bool {
	in := bufio.NewReader(a.Stdin)
	return func(name string) bool {
		fmt.Fprintf(a.Stderr, prompt, name)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func (a *App) printReport(r *doctor.Report) {
	st := a.styles()
	order, groups := r.BySkill()
	for _, skill := range order {
		heading := skill
		if heading == "" {
			heading = "project"
		}
		a.printf("%s\n", st.name.Render(heading))
		for _, f := range groups[skill] {
			msg := f.Message
			if f.Issue {
				msg = st.warn.Render(msg)
			}
			a.printf("  - %s\n", msg)
			if f.Action != "" {
				a.printf("    %s %s\n", st.dim.Render("fix:"), f.Action)
			}
		}
	}
	for _, rp := range r.Repairs {
		style := st.ok
		if rp.Kind == doctor.RepairFailed {
			style = st.bad
		}
		a.printf("%s %s\n", style.Render(string(rp.Kind)+":"), rp.Message)
	}
	if n := r.Issues(); n > 0 {
		a.printf("%d issue%s found.\n", n, plural(n))
	} else if len(r.Repairs) == 0 {
		a.printf("No problems found.\n")
	}
}

func (a *App) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh the cache mirrors the lockfile references",
		Long: `Update fetches every repository referenced by skills.lock.json into the
per-user cache. It never changes installed skills or the lockfile; run
'sk upgrade' afterwards to move skills forward.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			results, err := p.inst.Update(cmd.Context())
			if err != nil {
				return err
			}
			var errs []error
			for _, r := range results {
				if r.Err != nil {
					a.warnf("%v", r.Err)
					errs = append(errs, r.Err)
					continue
				}
				a.printf("Refreshed %s\n", r.Ref.Slug())
			}
			if len(results) == 0 {
				a.printf("Nothing to update.\n")
			}
			if len(errs) > 0 {
				return skerr.Wrap(skerr.KindOf(errs[0]), fmt.Errorf("%d of %d repositories could not be refreshed: %w",
					len(errs), len(results), errors.Join(errs...)))
			}
			return nil
		},
	}
}

func (a *App) upgradeCmd() *cobra.Command {
	var req installer.UpgradeRequest
	cmd := &cobra.Command{
		Use:   "upgrade [name]",
		Short: "Move clean skills to the current commit of their ref",
		Long: `Upgrade re-resolves an entry's ref (its branch, or the default branch) and
replaces the installed copy. Skills with local edits are refused. Pinned
entries (tag or commit refs) only move with --include-pinned or --ref.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Name = args[0]
			}
			if req.All && req.Name != "" {
				return skerr.New(skerr.KindPrecondition, "pass a skill name or --all, not both")
			}
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			report, err := p.inst.Upgrade(cmd.Context(), req)
			if report != nil {
				a.printUpgrade(report, req.DryRun)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&req.All, "all", false, "upgrade every entry")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&req.IncludePinned, "include-pinned", false, "also move entries pinned to a tag or commit")
	cmd.Flags().StringVar(&req.Ref, "ref", "", "retarget a single entry to this branch, tag or commit")
	return cmd
}

func (a *App) printUpgrade(r *installer.UpgradeReport, dryRun bool) {
	st := a.styles()
	for _, repo := range r.Stale {
		a.warnf("could not refresh %s; using the cached mirror", repo)
	}
	verb := "Upgraded"
	if dryRun {
		verb = "Would upgrade"
	}
	for _, pl := range r.Planned {
		note := ""
		if pl.Refresh {
			note = " (content unchanged, lock entry only)"
		}
		a.printf("%s %s: %s -> %s%s\n", verb, st.name.Render(pl.InstallName), lockfile.Short(pl.From), lockfile.Short(pl.To), note)
	}
	for _, s := range r.Skipped {
		why := "local edits"
		if s.Reason == installer.SkipPinned {
			why = "pinned"
		}
		change := ""
		if s.From != "" && s.To != "" {
			change = fmt.Sprintf(" (%s -> %s available)", lockfile.Short(s.From), lockfile.Short(s.To))
		}
		a.printf("Skipped %s: %s%s\n  %s\n", st.name.Render(s.InstallName), st.warn.Render(why), change, st.dim.Render(s.Hint()))
	}
	for _, f := range r.Failed {
		a.warnf("%s: %v", f.InstallName, f.Err)
	}
	if len(r.Planned) == 0 && len(r.Skipped) == 0 && len(r.Failed) == 0 {
		a.printf("Everything is up to date.\n")
	}
}

func (a *App) removeCmd() *cobra.Command {
	var opts installer.RemoveOptions
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete an installed skill and its lock entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.inst.Remove(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			a.printf("Removed %s\n", res.Entry.InstallName)
			if res.PrunedMirror != "" {
				a.printf("Pruned cache %s\n", res.PrunedMirror)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "remove even when the install has local edits or is missing")
	cmd.Flags().BoolVar(&opts.PruneCache, "prune-cache", false, "also delete the cache mirror when nothing else uses it")
	return cmd
}
