// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacklok/skills-kit/installer"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/syncback"
)

func (a *App) syncBackCmd() *cobra.Command {
	var (
		req   syncback.Request
		repo  string
		https bool
	)
	cmd := &cobra.Command{
		Use:   "sync-back <name>",
		Short: "Publish local edits (or a new skill) upstream on a branch",
		Long: `Sync-back copies an installed skill onto a fresh branch of its source
repository, commits, pushes and, when the gh CLI is available, opens a pull
request and requests auto-merge. The lock entry then points at the published
commit.

A skill without a lock entry (for example one made with 'sk template create')
is published to --repo, or to the default_repo config value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			req.InstallName = args[0]
			target := repo
			if target == "" {
				target = p.cfg.DefaultRepo
			}
			if target != "" {
				ref, _, err := p.resolveRepo(target, https)
				switch {
				case err != nil && repo != "":
					return err
				case err != nil:
					a.log().Warn("ignoring unparseable default_repo", "value", target, "error", err)
				default:
					req.Repo = &ref
				}
			}

			opts := []syncback.Option{
				syncback.WithEnv(a.Env),
				syncback.WithLogger(a.log()),
				syncback.WithClock(a.now),
			}
			if a.Review != nil {
				opts = append(opts, syncback.WithReviewTool(a.Review))
			}
			if a.Syncer != nil {
				opts = append(opts, syncback.WithDirSyncer(a.Syncer))
			}
			res, err := syncback.New(p.layout, p.git, opts...).Publish(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printPublish(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "destination repository for a skill that is not locked yet")
	cmd.Flags().StringVar(&req.SkillPath, "path", "", "path of a new skill inside the destination repository")
	cmd.Flags().StringVar(&req.Branch, "branch", "", "branch to push (default sk/sync/<name>/<timestamp>)")
	cmd.Flags().StringVar(&req.Message, "message", "", "commit message")
	cmd.Flags().BoolVar(&https, "https", false, "expand shorthand to an https URL")
	return cmd
}

func (a *App) printPublish(res *syncback.Result) {
	st := a.styles()
	if res.NoChanges {
		a.printf("No changes to publish for %s; %s already matches its base commit.\n", res.InstallName, res.Repo)
		return
	}
	a.printf("Pushed %s to %s (%s)\n", st.name.Render(res.Branch), res.Repo, lockfile.Short(res.Pushed))
	if pr := res.PullRequest; pr != nil {
		verb := "Found"
		if res.PRCreated {
			verb = "Opened"
		}
		a.printf("%s pull request %s\n", verb, pr.URL)
	}
	switch {
	case res.Merged:
		a.printf("Auto-merge completed\n")
	case res.AutoMerge != syncback.AutoMergeNotAttempted:
		a.printf("Auto-merge: %s\n", res.AutoMerge)
	}
	if res.Entry != nil {
		a.printf("Locked %s at %s\n", res.Entry.InstallName, res.Entry.ShortCommit())
	}
	for _, f := range res.FollowUps {
		a.printf("%s %s\n", st.warn.Render("next:"), f)
	}
}

func (a *App) repoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage the repositories registered in skills.lock.json",
	}
	cmd.AddCommand(a.repoAddCmd(), a.repoListCmd(), a.repoRemoveCmd(), a.repoSearchCmd())
	return cmd
}

func (a *App) repoAddCmd() *cobra.Command {
	var (
		alias string
		https bool
	)
	cmd := &cobra.Command{
		Use:   "add <repo>",
		Short: "Register a repository under an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			ref, err := source.Parse(args[0], https || p.cfg.PreferHTTPS(), p.cfg.DefaultHost)
			if err != nil {
				return err
			}
			added, err := p.inst.AddRepo(cmd.Context(), alias, ref)
			if err != nil {
				return err
			}
			a.printf("Added %s -> %s\n", added.Alias, added.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&alias, "alias", "", "alias (default: the repository name)")
	cmd.Flags().BoolVar(&https, "https", false, "expand shorthand to an https URL")
	return cmd
}

func (a *App) repoListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			repos, err := p.inst.Repos()
			if err != nil {
				return err
			}
			if asJSON {
				if repos == nil {
					repos = []lockfile.RepoEntry{}
				}
				return a.printJSON(repos)
			}
			if len(repos) == 0 {
				a.printf("No repos registered. Add one with 'sk repo add <repo>'.\n")
				return nil
			}
			st := a.styles()
			table := make([][]string, 0, len(repos))
			for _, r := range repos {
				table = append(table, []string{st.name.Render(r.Alias), r.RemoteRef().Slug(), r.URL})
			}
			a.table(table)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *App) repoRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <alias>",
		Short: "Unregister a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.inst.RemoveRepo(args[0]); err != nil {
				return err
			}
			a.printf("Removed %s\n", args[0])
			return nil
		},
	}
}

func (a *App) repoSearchCmd() *cobra.Command {
	var (
		repo   string
		all    bool
		https  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search registered repositories for skills",
		Long: `Search scans the default branch of each registered repository (or the one
named by --repo) for skills whose name, path or description contains every
word of the query. --all lists every skill.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" && !all {
				return skerr.WithHint(skerr.New(skerr.KindPrecondition, "no search query"), "pass a query, or --all to list every skill")
			}
			p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			var req installer.SearchRequest
			if !all {
				req.Query = query
			}
			if repo != "" {
				ref, _, err := p.resolveRepo(repo, https)
				if err != nil {
					return err
				}
				req.Targets = []source.Ref{ref}
			}
			hits, err := p.inst.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				if hits == nil {
					hits = []installer.SearchHit{}
				}
				return a.printJSON(hits)
			}
			if len(hits) == 0 {
				a.printf("No skills matched.\n")
				return nil
			}
			st := a.styles()
			table := make([][]string, 0, len(hits))
			for _, h := range hits {
				table = append(table, []string{st.name.Render(h.Name), h.Repo, h.Path, h.Description})
			}
			a.table(table)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "search only this alias or repository")
	cmd.Flags().BoolVar(&all, "all", false, "list every skill")
	cmd.Flags().BoolVar(&https, "https", false, "expand shorthand to an https URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
