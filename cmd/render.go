package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bov-engine/internal/document"
	"github.com/sells-group/bov-engine/internal/render"
)

type renderOptions struct {
	output       string
	templateDir  string
	templateName string
}

var renderOpts renderOptions

var renderCmd = &cobra.Command{
	Use:   "render <data.json>",
	Short: "Render a BOV data file into an HTML page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := renderOpts.withDefaults()
		cfg.Render.TemplateDir = opts.templateDir
		cfg.Render.TemplateName = opts.templateName
		if err := cfg.Validate("render"); err != nil {
			return err
		}
		return runRender(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOpts.output, "output", "o", "", "output HTML path (default <output_dir>/<meta.repo_name>.html)")
	renderCmd.Flags().StringVarP(&renderOpts.templateDir, "template", "t", "", "template directory (default from config)")
	renderCmd.Flags().StringVar(&renderOpts.templateName, "template-name", "", "template file name (default from config)")
	rootCmd.AddCommand(renderCmd)
}

// withDefaults fills unset flags from config.
func (o renderOptions) withDefaults() renderOptions {
	if o.templateDir == "" {
		o.templateDir = cfg.Render.TemplateDir
	}
	if o.templateName == "" {
		o.templateName = cfg.Render.TemplateName
	}
	return o
}

// warnMissing reports absent sections on errOut. Rendering still proceeds.
func warnMissing(errOut io.Writer, doc *document.Document) {
	missing := render.MissingSections(doc)
	if len(missing) == 0 {
		return
	}
	zap.L().Warn("data file is missing sections", zap.Strings("missing", missing))
	_, _ = fmt.Fprintf(errOut, "WARNING: Missing keys in data file: %s\n", strings.Join(missing, ", "))
	_, _ = fmt.Fprintln(errOut, "The template may not render correctly.")
}

func runRender(out, errOut io.Writer, path string, opts renderOptions) error {
	_, _ = fmt.Fprintf(out, "Loading data from: %s\n", path)
	doc, err := document.Load(path)
	if err != nil {
		return err
	}
	warnMissing(errOut, doc)

	_, _ = fmt.Fprintf(out, "Rendering template: %s\n", filepath.Join(opts.templateDir, opts.templateName))
	html, err := render.New(opts.templateDir).Document(opts.templateName, doc)
	if err != nil {
		return err
	}

	outPath := opts.output
	if outPath == "" {
		outPath = render.OutputPath(doc, cfg.Render.OutputDir)
	}
	n, err := render.WriteOutput(outPath, html)
	if err != nil {
		return err
	}

	zap.L().Info("rendered", zap.String("output", outPath), zap.Int64("bytes", n))
	_, _ = fmt.Fprintln(out, "BOV rendered successfully!")
	_, _ = fmt.Fprintf(out, "  Output: %s\n", outPath)
	_, _ = fmt.Fprintf(out, "  %s\n", render.SizeLine(n))
	return nil
}
