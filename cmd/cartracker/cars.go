package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/maruel/cartracker/internal/errors"
	"github.com/maruel/cartracker/internal/importer"
	"github.com/maruel/cartracker/internal/models"
	"github.com/maruel/cartracker/internal/server/handlers"
)

// carFlags binds one flag per editable field.
type carFlags struct {
	values map[string]*string
}

// fieldFlags maps flag names to record fields.
var fieldFlags = []struct {
	flag, field, usage string
}{
	{"model", models.FieldModel, "Model name"},
	{"manufacturer", models.FieldManufacturer, "Manufacturer"},
	{"year", models.FieldYear, "Year of production"},
	{"country", models.FieldCountryOfOrigin, "Country of origin"},
	{"category", models.FieldCategory, "Category (sedan, coupe...)"},
	{"replica", models.FieldReplicaModel, "Replica maker or scale model"},
	{"info", models.FieldInfo, "Link or free text"},
}

func addCarFlags(cmd *cobra.Command, withModel bool) *carFlags {
	cf := &carFlags{values: map[string]*string{}}
	for _, f := range fieldFlags {
		if f.flag == "model" && !withModel {
			continue
		}
		cf.values[f.flag] = cmd.Flags().String(f.flag, "", f.usage)
	}
	return cf
}

// fields returns the flags explicitly set on cmd.
func (cf *carFlags) fields(cmd *cobra.Command) models.Fields {
	out := models.Fields{}
	for _, f := range fieldFlags {
		if v, ok := cf.values[f.flag]; ok && cmd.Flags().Changed(f.flag) {
			out[f.field] = *v
		}
	}
	return out
}

func newAddCmd(a *app) *cobra.Command {
	var cf *carFlags
	cmd := &cobra.Command{
		Use:   "add MODEL",
		Short: "Add a car",
		Long: `Add a car to the collection.

Numeric years outside 1885-2100 are cleared. Adding a model that already
exists, ignoring case, fails.

Examples:
  cartracker add "Toyota Corolla" --manufacturer Toyota --year 2020`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cf.fields(cmd)
			f[models.FieldModel] = args[0]
			if _, err := a.tracker.Add(f); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.out, "Added %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
	cf = addCarFlags(cmd, false)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every car",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cars, err := a.tracker.List()
			if err != nil {
				return err
			}
			return printCars(a.out, cars, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "List cars whose model contains TERM, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cars, err := a.tracker.Search(args[0])
			if err != nil {
				return err
			}
			return printCars(a.out, cars, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete MODEL",
		Aliases: []string{"rm"},
		Short:   "Delete the car with this model, ignoring case",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.tracker.Delete(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errors.NotFound("car " + args[0])
			}
			_, _ = fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var cf *carFlags
	cmd := &cobra.Command{
		Use:   "edit MODEL",
		Short: "Change fields of a car",
		Long: `Change fields of the car with this model. Only the flags given are
changed; --model renames the car.

Examples:
  cartracker edit "toyota corolla" --year 2021 --category Sedan`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := cf.fields(cmd)
			if len(changes) == 0 {
				return errors.BadRequest("nothing to change, pass at least one field flag")
			}
			ok, err := a.tracker.Edit(args[0], changes)
			if err != nil {
				return err
			}
			if !ok {
				return errors.NotFound("car " + args[0])
			}
			_, _ = fmt.Fprintf(a.out, "Updated %s\n", args[0])
			return nil
		},
	}
	cf = addCarFlags(cmd, true)
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Import cars from JSON, CSV or XLSX files",
		Long: `Import cars from files. The format is picked from the extension: ` + strings.Join(importer.Formats, ", ") + `.

CSV and XLSX files must start with a header row naming the fields. Invalid
records and models already present are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				items, err := importer.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := a.tracker.AddMany(items)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(a.out, "%s: added %d, invalid %d, duplicates %d\n", path, res.Added, res.Invalid, res.Duplicates)
			}
			return nil
		},
	}
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a car",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(handlers.CarSchema(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "%s\n", data)
			return err
		},
	}
}

func printCars(w io.Writer, cars []models.CarView, asJSON bool) error {
	if asJSON {
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(cars)
	}
	if len(cars) == 0 {
		_, _ = fmt.Fprintln(w, "No cars.")
		return nil
	}
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd())
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "MODEL\tMANUFACTURER\tYEAR\tCOUNTRY\tCATEGORY\tREPLICA\tINFO")
	for _, c := range cars {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Model, c.Manufacturer, c.Year, c.CountryOfOrigin, c.Category, c.ReplicaModel, infoCell(c.Info, tty))
	}
	return tw.Flush()
}

// infoCell renders links as terminal hyperlinks when printing to a terminal.
func infoCell(info string, tty bool) string {
	if !tty || !models.ValidURL(info) {
		return info
	}
	u := strings.TrimSpace(info)
	return "\x1b]8;;" + u + "\x1b\\" + u + "\x1b]8;;\x1b\\"
}
