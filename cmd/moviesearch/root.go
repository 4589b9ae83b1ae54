package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"findingmovie/searchservice/internal/domain"
)

const defaultCommandTimeout = 30 * time.Second

type searcher interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	Analyze(ctx context.Context, prompt string) (domain.ExtractedQuery, error)
}

type openFunc func(ctx context.Context) (searcher, func(), error)

type rootOptions struct {
	json    bool
	timeout time.Duration
}

func newRootCmd(open openFunc) *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "moviesearch",
		Short:        "Find movies from a free-text prompt",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultCommandTimeout, "Overall command timeout")

	rootCmd.AddCommand(newSearchCmd(open, opts), newAnalyzeCmd(open, opts))
	return rootCmd
}

func newSearchCmd(open openFunc, opts *rootOptions) *cobra.Command {
	var genres []string
	cmd := &cobra.Command{
		Use:   "search <prompt...>",
		Short: "Rank movies for a prompt",
		Long: `Extract intent from the prompt, query TMDB, and print the ranked movies.

Examples:
  moviesearch search "funny movies with will smith"
  moviesearch search --genres drama "something from the 90s"
  moviesearch search --json "Find the titanic movie" | jq '.movies[0]'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			svc, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			response, err := svc.Search(ctx, domain.SearchRequest{
				Prompt:          strings.Join(args, " "),
				PreferredGenres: genres,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), response)
			}
			printSearch(cmd.OutOrStdout(), response)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&genres, "genres", nil, "Preferred genres used as a ranking hint")
	return cmd
}

func newAnalyzeCmd(open openFunc, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <prompt...>",
		Short: "Show the structured query extracted from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			svc, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			query, err := svc.Analyze(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), query)
			}
			printQuery(cmd.OutOrStdout(), query)
			return nil
		},
	}
}

func writeJSON(w io.Writer, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printSearch(w io.Writer, response domain.SearchResponse) {
	fmt.Fprintf(w, "strategy: %s (%d ms)\n", response.Strategy, response.ElapsedMS)
	if len(response.Movies) == 0 {
		fmt.Fprintln(w, "no movies found")
		return
	}
	for i, movie := range response.Movies {
		year := "n/a"
		if y := movie.ReleaseYear(); y > 0 {
			year = fmt.Sprint(y)
		}
		fmt.Fprintf(w, "%2d. %s (%s)  score %.3f\n", i+1, movie.Title, year, movie.TotalScore)
		if len(movie.GenreNames) > 0 {
			fmt.Fprintf(w, "    genres: %s\n", strings.Join(movie.GenreNames, ", "))
		}
		if len(movie.Credits) > 0 {
			names := make([]string, 0, 3)
			for _, member := range movie.Credits {
				if len(names) == 3 {
					break
				}
				names = append(names, member.Name)
			}
			fmt.Fprintf(w, "    cast: %s\n", strings.Join(names, ", "))
		}
		if movie.TrailerURL != nil {
			fmt.Fprintf(w, "    trailer: %s\n", *movie.TrailerURL)
		}
	}
}

func printQuery(w io.Writer, query domain.ExtractedQuery) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-12s %s\n", name+":", value)
		}
	}
	field("movie", query.MovieName)
	field("actors", strings.Join(query.ActorNames, ", "))
	field("genres", strings.Join(query.Genres, ", "))
	field("tags", strings.Join(query.Tags, ", "))
	field("year", query.Year)
	field("mood", query.Mood)
	field("operator", string(query.Operator))
	if query.ResultCount > 0 {
		field("count", fmt.Sprint(query.ResultCount))
	}
}
