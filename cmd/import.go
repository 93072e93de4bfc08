package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hireloop/jobgeo/internal/model"
	"github.com/hireloop/jobgeo/internal/store"
)

var importFilePath string

// importFile is the board export format: flat records with their original
// attributes carried along for field-level coordinate extraction.
type importFile struct {
	Companies []importCompany `json:"companies"`
	Jobs      []importJob     `json:"jobs"`
}

type importCompany struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Location string         `json:"location"`
	Attrs    map[string]any `json:"attrs"`
}

type importJob struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Location  string         `json:"location"`
	CompanyID string         `json:"companyId"`
	Attrs     map[string]any `json:"attrs"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import companies and jobs from a JSON export",
	Long: `Upserts records by id, so re-importing an updated export is safe.
Coordinates and provenance already resolved for existing rows are preserved;
run backfill afterwards to resolve the newly imported ones.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importFilePath)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFilePath)
		}
		var file importFile
		if err := json.Unmarshal(data, &file); err != nil {
			return eris.Wrapf(err, "parse %s", importFilePath)
		}

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		companies := make([]model.Company, 0, len(file.Companies))
		for _, c := range file.Companies {
			if c.ID == "" {
				return eris.New("company record without id")
			}
			companies = append(companies, model.Company{
				ID: c.ID, Name: c.Name, Location: c.Location, Attrs: c.Attrs,
			})
		}
		jobs := make([]model.Job, 0, len(file.Jobs))
		for _, j := range file.Jobs {
			if j.ID == "" {
				return eris.New("job record without id")
			}
			jobs = append(jobs, model.Job{
				ID: j.ID, Title: j.Title, Location: j.Location, CompanyID: j.CompanyID, Attrs: j.Attrs,
			})
		}

		// Companies first: jobs reference them.
		nCompanies, err := store.NewCompanyStore(pool).Import(ctx, companies)
		if err != nil {
			return err
		}
		nJobs, err := store.NewJobStore(pool).Import(ctx, jobs)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("companies", nCompanies),
			zap.Int64("jobs", nJobs),
			zap.String("file", importFilePath),
		)
		fmt.Printf("imported %d companies, %d jobs\n", nCompanies, nJobs)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to JSON export (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
