package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"configedit/internal/core"
	"configedit/internal/presentation"
	"configedit/pkg/domain"

	"github.com/spf13/cobra"
)

// target holds the --dsm/--sensor/--variable flags of a command.
type target struct {
	dsm      string
	sensor   uint32
	variable string
}

func (t *target) bind(cmd *cobra.Command, depth int) {
	cmd.Flags().StringVar(&t.dsm, "dsm", "", "DSM name")
	if depth > 1 {
		cmd.Flags().Uint32Var(&t.sensor, "sensor", 0, "sensor id within the DSM")
	}
	if depth > 2 {
		cmd.Flags().StringVar(&t.variable, "variable", "", "variable name")
	}
}

func (a *app) resolveDSM(site *domain.Site, t target) (*domain.DSM, error) {
	if t.dsm == "" {
		return nil, domain.ErrNoDSMSelected
	}
	dsm, ok := site.FindDSMByName(t.dsm)
	if !ok {
		return nil, domain.NotFoundError{Entity: domain.EntityDSM, Key: t.dsm}
	}
	return dsm, nil
}

func (a *app) resolveSensor(site *domain.Site, t target) (*domain.Sensor, error) {
	dsm, err := a.resolveDSM(site, t)
	if err != nil {
		return nil, err
	}
	sensor, ok := dsm.FindSensor(t.sensor)
	if !ok {
		return nil, domain.NotFoundError{Entity: domain.EntitySensor, Key: fmt.Sprintf("%s/%d", dsm.Name, t.sensor)}
	}
	return sensor, nil
}

// report prints the changes of the last committed edit.
func (a *app) report() error {
	entries := a.audit.Entries()
	if len(entries) == 0 {
		return nil
	}
	last := entries[len(entries)-1]
	for _, c := range last.Changes {
		if _, err := fmt.Fprintf(a.stdout, "%s %s %s\n", c.Action, c.Entity, c.Key); err != nil {
			return err
		}
	}
	return nil
}

// edit opens the document, runs fn against its site, and saves on success.
func (a *app) edit(ctx context.Context, fn func(*core.Document, *domain.Site) (domain.Result, error)) error {
	d, err := a.open(ctx)
	if err != nil {
		return err
	}
	site, err := a.site(d)
	if err != nil {
		return err
	}
	res, err := fn(d, site)
	if err != nil {
		return err
	}
	if err := a.save(ctx, res); err != nil {
		return err
	}
	return a.report()
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(a.stdout, "project %s\n", d.Project().Name); err != nil {
				return err
			}
			return printTree(a.stdout, d.Model(), presentation.Index{}, 0)
		},
	}
}

func printTree(w io.Writer, m *presentation.Model, parent presentation.Index, depth int) error {
	cols := m.ColumnCount(parent)
	for row := range m.RowCount(parent) {
		idx := m.Index(row, 0, parent)
		cells := make([]string, 0, cols)
		for c := range cols {
			if text := m.Data(idx.Sibling(c)); text != "" {
				cells = append(cells, text)
			}
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), strings.Join(cells, "  ")); err != nil {
			return err
		}
		if err := printTree(w, m, idx, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func newNextIDsCmd(a *app) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "next-ids",
		Short: "Print the ids and channels the next additions would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			site, err := a.site(d)
			if err != nil {
				return err
			}
			id, err := d.NextDSMID(core.On(site))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(a.stdout, "dsm %d\n", id); err != nil {
				return err
			}
			if t.dsm == "" {
				return nil
			}
			dsm, err := a.resolveDSM(site, t)
			if err != nil {
				return err
			}
			sid, err := d.NextSensorID(core.On(dsm))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(a.stdout, "sensor %d\n", sid); err != nil {
				return err
			}
			if !cmd.Flags().Changed("sensor") {
				return nil
			}
			sensor, err := a.resolveSensor(site, t)
			if err != nil {
				return err
			}
			free := d.AvailableA2DChannels(core.On(sensor))
			strs := make([]string, len(free))
			for i, ch := range free {
				strs[i] = strconv.Itoa(ch)
			}
			_, err = fmt.Fprintf(a.stdout, "channels %s\n", strings.Join(strs, " "))
			return err
		},
	}
	t.bind(cmd, 2)
	return cmd
}

func newAddDSMCmd(a *app) *cobra.Command {
	var spec core.DSMSpec
	cmd := &cobra.Command{
		Use:   "add-dsm",
		Short: "Add a DSM to the site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.edit(cmd.Context(), func(d *core.Document, site *domain.Site) (domain.Result, error) {
				if spec.ID == "" {
					id, err := d.NextDSMID(core.On(site))
					if err != nil {
						return domain.Result{}, err
					}
					spec.ID = strconv.FormatUint(uint64(id), 10)
				}
				_, res, err := d.AddDSM(cmd.Context(), core.On(site), spec)
				return res, err
			})
		},
	}
	cmd.Flags().StringVar(&spec.Name, "name", "", "DSM name")
	cmd.Flags().StringVar(&spec.ID, "id", "", "DSM id (next free id when empty)")
	cmd.Flags().StringVar(&spec.Location, "location", "", "mounting location")
	return cmd
}

func newAddSensorCmd(a *app) *cobra.Command {
	var (
		t    target
		spec core.SensorSpec
	)
	cmd := &cobra.Command{
		Use:   "add-sensor",
		Short: "Add a sensor of a catalog type to a DSM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.edit(cmd.Context(), func(d *core.Document, site *domain.Site) (domain.Result, error) {
				dsm, err := a.resolveDSM(site, t)
				if err != nil {
					return domain.Result{}, err
				}
				if spec.ID == "" {
					id, err := d.NextSensorID(core.On(dsm))
					if err != nil {
						return domain.Result{}, err
					}
					spec.ID = strconv.FormatUint(uint64(id), 10)
				}
				_, res, err := d.AddSensor(cmd.Context(), core.On(dsm), spec)
				return res, err
			})
		},
	}
	t.bind(cmd, 1)
	f := cmd.Flags()
	f.StringVar(&spec.CatalogID, "type", "", "sensor catalog id")
	f.StringVar(&spec.Device, "device", "", "device name")
	f.StringVar(&spec.ID, "id", "", "sensor id (next id when empty)")
	f.StringVar(&spec.Suffix, "suffix", "", "variable name suffix")
	f.StringVar(&spec.TempSuffix, "temp-suffix", "", "A2D board temperature suffix")
	f.StringVar(&spec.A2DCalFile, "a2d-cal", "", "A2D board calibration file")
	f.StringVar(&spec.PMSSerial, "serial", "", "particle probe serial number")
	f.StringVar(&spec.PMSResolution, "resolution", "", "particle probe resolution")
	return cmd
}

func newAddVariableCmd(a *app) *cobra.Command {
	var (
		t    target
		spec core.A2DVariableSpec
	)
	cmd := &cobra.Command{
		Use:   "add-variable",
		Short: "Add an analog channel to an A2D sensor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.edit(cmd.Context(), func(d *core.Document, site *domain.Site) (domain.Result, error) {
				sensor, err := a.resolveSensor(site, t)
				if err != nil {
					return domain.Result{}, err
				}
				if !cmd.Flags().Changed("channel") {
					free := d.AvailableA2DChannels(core.On(sensor))
					if len(free) == 0 {
						return domain.Result{}, errors.New("no free A2D channel")
					}
					spec.Channel = free[0]
				}
				_, res, err := d.AddA2DVariable(cmd.Context(), core.On(sensor), spec)
				return res, err
			})
		},
	}
	t.bind(cmd, 2)
	f := cmd.Flags()
	f.StringVar(&spec.Prefix, "prefix", "", "variable name prefix")
	f.StringVar(&spec.Suffix, "suffix", "", "variable name suffix")
	f.StringVar(&spec.LongName, "longname", "", "descriptive name")
	f.StringVar(&spec.Volts, "volts", domain.VoltsBipolar10, "voltage range")
	f.IntVar(&spec.Channel, "channel", 0, "A2D channel (first free channel when unset)")
	f.Float64Var(&spec.Rate, "rate", 0, "sample rate in Hz")
	f.StringVar(&spec.Units, "units", "", "engineering units of the calibration")
	f.StringSliceVar(&spec.Cals, "cal", nil, "calibration coefficients, XML: first for inline values")
	return cmd
}

func newSetSampleRateCmd(a *app) *cobra.Command {
	var (
		t        target
		sampleID uint32
		rate     float64
	)
	cmd := &cobra.Command{
		Use:   "set-sample-rate",
		Short: "Change the rate of a sensor's sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.edit(cmd.Context(), func(d *core.Document, site *domain.Site) (domain.Result, error) {
				sensor, err := a.resolveSensor(site, t)
				if err != nil {
					return domain.Result{}, err
				}
				return d.UpdateSampleRate(cmd.Context(), core.On(sensor), sampleID, rate)
			})
		},
	}
	t.bind(cmd, 2)
	cmd.Flags().Uint32Var(&sampleID, "sample", 1, "sample id")
	cmd.Flags().Float64Var(&rate, "rate", 0, "sample rate in Hz")
	return cmd
}

func newSetProjectNameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-project-name NAME",
		Short: "Rename the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), func(d *core.Document, _ *domain.Site) (domain.Result, error) {
				return domain.Result{}, d.SetProjectName(cmd.Context(), args[0])
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		t         target
		wholeSite bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a site, DSM, sensor or analog variable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.edit(cmd.Context(), func(d *core.Document, site *domain.Site) (domain.Result, error) {
				var victim any
				switch {
				case wholeSite:
					victim = site
				case t.variable != "":
					sensor, err := a.resolveSensor(site, t)
					if err != nil {
						return domain.Result{}, err
					}
					v, ok := findVariable(sensor, t.variable)
					if !ok {
						return domain.Result{}, domain.NotFoundError{Entity: domain.EntityVariable, Key: t.variable}
					}
					victim = v
				case cmd.Flags().Changed("sensor"):
					sensor, err := a.resolveSensor(site, t)
					if err != nil {
						return domain.Result{}, err
					}
					victim = sensor
				default:
					dsm, err := a.resolveDSM(site, t)
					if err != nil {
						return domain.Result{}, err
					}
					victim = dsm
				}
				return d.Delete(cmd.Context(), victim)
			})
		},
	}
	t.bind(cmd, 3)
	cmd.Flags().BoolVar(&wholeSite, "whole-site", false, "delete the site itself")
	return cmd
}

func findVariable(sensor *domain.Sensor, name string) (*domain.Variable, bool) {
	for _, v := range sensor.Variables() {
		if v.Name == name || v.FullName() == name {
			return v, true
		}
	}
	return nil, false
}

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the device capability table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.caps.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range rows {
				if _, err := fmt.Fprintf(a.stdout, "%s %s %d-%d %s\n", c.Name, c.Prefix, c.Min, c.Max, c.Kind); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCalFilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cal-files",
		Short: "List the engineering calibration files of the first site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range d.CalibrationFiles() {
				if _, err := fmt.Fprintln(a.stdout, f); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
