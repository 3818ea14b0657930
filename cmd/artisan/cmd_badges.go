package main

import (
	"github.com/fjod/artisan_market/internal/badges"
	"github.com/fjod/artisan_market/internal/domain"
	"github.com/spf13/cobra"
)

var (
	artisan      domain.Artisan
	badgeCatalog bool
)

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Print the badges an artisan would get",
	Long: `Evaluates the badge rules against the artisan described by the flags and
prints the badges shown on the artisan's profile.

Example:
  artisan badges --experience 12 --rating 4.8 --eco
  artisan badges --certification "Meilleur Ouvrier de France 2019"
  artisan badges --catalog`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if badgeCatalog {
			return writeJSON(cmd.OutOrStdout(), badges.Catalog())
		}
		return writeJSON(cmd.OutOrStdout(), badges.BadgesFor(artisan))
	},
}

func init() {
	f := badgesCmd.Flags()
	f.BoolVar(&badgeCatalog, "catalog", false, "print the whole badge catalog instead")
	f.BoolVar(&artisan.Certified, "certified", false, "artisan is verified")
	f.IntVar(&artisan.Experience, "experience", 0, "years of experience")
	f.BoolVar(&artisan.EcoFriendly, "eco", false, "uses eco-friendly materials")
	f.BoolVar(&artisan.LocalProduction, "local", false, "produces locally")
	f.BoolVar(&artisan.Handmade, "handmade", false, "everything is handmade")
	f.Float64Var(&artisan.Rating, "rating", 0, "average review rating")
	f.BoolVar(&artisan.TraditionalMethods, "traditional", false, "uses traditional methods")
	f.BoolVar(&artisan.Innovative, "innovative", false, "brings innovative techniques")
	f.StringArrayVar(&artisan.Certifications, "certification", nil, "certification held (repeatable)")
}
