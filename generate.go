package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"social-service/repo"
)

var (
	firstNames = []string{"Michael", "Dwight", "Jim", "Pam", "Angela", "Oscar", "Kevin", "Stanley", "Phyllis", "Andy", "Kelly", "Ryan", "Erin", "Toby", "Meredith", "Creed"}
	lastNames  = []string{"Scott", "Schrute", "Halpert", "Beesly", "Martin", "Martinez", "Malone", "Hudson", "Vance", "Bernard", "Kapoor", "Howard", "Hannon", "Flenderson", "Palmer", "Bratton"}
	colleges   = []string{"Scranton University", "Cornell University", "Penn State", "Keystone College", "University of New York", "Marywood University"}
)

type generateOptions struct {
	Users                  int
	ConnectionsPerUser     int
	RecommendationsPerUser int
	Seed                   uint64
}

func newGenerateCmd() *cobra.Command {
	var (
		opts   generateOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random data file for the json storage backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := generateDataset(opts)
			if err != nil {
				return err
			}
			if output == "-" {
				return ds.Write(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeDataset(f, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d users, %d connections, %d recommendations to %s\n",
				len(ds.Users), len(ds.Connections), len(ds.Recommendations), output)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Users, "users", "n", 50, "number of users")
	cmd.Flags().IntVar(&opts.ConnectionsPerUser, "connections", 5, "connections to attempt per user")
	cmd.Flags().IntVar(&opts.RecommendationsPerUser, "recommendations", 5, "recommendations per user")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "data.json", "output file, - for stdout")
	return cmd
}

func writeDataset(f *os.File, ds *repo.Dataset) error {
	werr := ds.Write(f)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}

// generateDataset builds a valid dataset: unique ids, no self-loops and at
// most one connection per pair. Recommendations never point at a user's
// existing connections.
func generateDataset(opts generateOptions) (*repo.Dataset, error) {
	if opts.Users < 2 {
		return nil, fmt.Errorf("need at least 2 users, got %d", opts.Users)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	ds := &repo.Dataset{}
	for i := 0; i < opts.Users; i++ {
		first, last := firstNames[rng.IntN(len(firstNames))], lastNames[rng.IntN(len(lastNames))]
		ds.Users = append(ds.Users, repo.UserRecord{
			ID:      uuid.NewString(),
			Email:   fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			Name:    first + " " + last,
			College: colleges[rng.IntN(len(colleges))],
		})
	}

	linked := make(map[[2]int]bool)
	key := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}
	for i := range ds.Users {
		for n := 0; n < opts.ConnectionsPerUser; n++ {
			j := rng.IntN(len(ds.Users))
			if j == i || linked[key(i, j)] {
				continue
			}
			linked[key(i, j)] = true
			ds.Connections = append(ds.Connections, repo.ConnectionRecord{
				ID:    uuid.NewString(),
				Users: []string{ds.Users[i].ID, ds.Users[j].ID},
			})
		}
	}

	for i := range ds.Users {
		picked := make(map[int]bool)
		for _, j := range rng.Perm(len(ds.Users)) {
			if len(picked) == opts.RecommendationsPerUser {
				break
			}
			if j == i || linked[key(i, j)] {
				continue
			}
			picked[j] = true
			ds.Recommendations = append(ds.Recommendations, repo.RecommendationRecord{
				ID:                uuid.NewString(),
				UserID:            ds.Users[i].ID,
				RecommendedUserID: ds.Users[j].ID,
			})
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}
