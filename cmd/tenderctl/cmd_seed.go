package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Tender/internal/api"
	"github.com/MikeSquared-Agency/Tender/internal/procurement"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

//go:embed demo.yaml
var demoPackage []byte

func newSeedCommand() *cobra.Command {
	var (
		apiURL string
		actor  string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a package with bids on a running server and evaluate it",
		Long: `Seed posts a package and its bids to the tender API, moves the package to
evaluation and prints the recommendation. Without -f the built-in demo
package is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pf, err := seedFile(file)
			if err != nil {
				return err
			}
			c := &apiClient{
				baseURL: strings.TrimRight(apiURL, "/") + "/api/v1",
				actor:   actor,
				http:    &http.Client{Timeout: 30 * time.Second},
			}
			return seed(cmd.Context(), c, pf, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8700", "Tender API base URL")
	cmd.Flags().StringVar(&actor, "actor", "tenderctl", "Actor ID sent with every request")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Package YAML file (defaults to the demo package)")

	return cmd
}

func seedFile(path string) (*packageFile, error) {
	if path != "" {
		return loadPackageFile(path)
	}
	var pf packageFile
	if err := yaml.Unmarshal(demoPackage, &pf); err != nil {
		return nil, fmt.Errorf("parse demo package: %w", err)
	}
	return &pf, nil
}

func seed(ctx context.Context, c *apiClient, pf *packageFile, out io.Writer) error {
	pkg, bids, err := pf.snapshot()
	if err != nil {
		return err
	}

	var created store.Package
	if err := c.post(ctx, "/packages", procurement.CreatePackageInput{
		Title:          pkg.Title,
		TradeCategory:  pkg.TradeCategory,
		EstimatedValue: pkg.EstimatedValue,
		Weights:        pkg.Weights,
	}, &created); err != nil {
		return err
	}
	fmt.Fprintf(out, "created package %s (%s)\n", created.ID, created.Title)

	bidsPath := "/packages/" + created.ID.String() + "/bids"
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range bids {
		req := api.BidRequest{
			VendorID:     b.VendorID,
			VendorName:   b.VendorName,
			Amount:       b.Amount,
			Compliance:   b.Compliance,
			RawScores:    b.RawScores,
			VendorRating: b.VendorRating,
			Alternates:   b.Alternates,
		}
		g.Go(func() error {
			return c.post(gctx, bidsPath, req, nil)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(out, "submitted %d bids\n", len(bids))

	var moved store.Package
	if err := c.post(ctx, "/packages/"+created.ID.String()+"/transition", api.TransitionRequest{
		To:      store.PackageEvaluation,
		Version: created.Version,
	}, &moved); err != nil {
		return err
	}

	var ev procurement.Evaluation
	if err := c.post(ctx, "/packages/"+created.ID.String()+"/evaluate", nil, &ev); err != nil {
		return err
	}
	for _, rb := range ev.Result.Ranking {
		fmt.Fprintf(out, "  #%d %s total %.1f amount %s %s\n", rb.Rank, rb.BidID, rb.Total, rb.Amount, rb.Compliance)
	}
	rec := ev.Result.Recommendation
	if rec.None() {
		fmt.Fprintf(out, "no recommendation: %s\n", rec.Reason)
		return nil
	}
	fmt.Fprintf(out, "recommended bid %s (%s)\n", rec.BidID, rec.Reason)
	return nil
}

type apiClient struct {
	baseURL string
	actor   string
	http    *http.Client
}

func (c *apiClient) post(ctx context.Context, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.ActorHeader, c.actor)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity {
			return fmt.Errorf("POST %s: %s (%s): %w", path, apiErr.Error, apiErr.Kind, errRejected)
		}
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
