package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/diaryprint/pkg/pipeline"
)

// optionFlags binds the export options shared by export, plan and preview.
// Values from --config are loaded first; flags set on the command line
// override them.
type optionFlags struct {
	config  string
	noCache bool
	redis   string
	opts    pipeline.Options
}

func (f *optionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "TOML file with export options")
	fs.StringVar(&f.opts.Title, "title", "", "header title (default: document title)")
	fs.StringVar(&f.opts.Logo, "logo", "", "header logo: image path or http(s) URL")
	fs.StringVar(&f.opts.HeaderColor, "header-color", pipeline.DefaultHeaderColor, "header band color (#RRGGBB)")
	fs.Float64Var(&f.opts.Margin, "margin", pipeline.DefaultMargin, "page margin in mm")
	fs.StringVarP(&f.opts.Format, "format", "f", pipeline.DefaultFormat, "paper size: A4 or Letter")
	fs.Float64Var(&f.opts.Scale, "scale", pipeline.DefaultScale, "raster pixels per layout unit")
	fs.Float64Var(&f.opts.LayoutWidth, "width", pipeline.DefaultLayoutWidth, "fixed layout width the report is rendered at")
	fs.StringVar(&f.opts.Footer, "footer", "", "footer text; {page} and {pages} are replaced")
	fs.IntVar(&f.opts.MaxPixels, "max-pixels", 0, "largest raster allowed (0: default)")
	fs.IntVar(&f.opts.Concurrency, "concurrency", 0, "pages composed in parallel (0: default)")
	fs.BoolVar(&f.opts.Refresh, "refresh", false, "ignore cached plans and PDFs")
	fs.StringVar(&f.opts.ChromeURL, "chrome-url", "", "DevTools URL of a running Chrome (HTML input)")
	fs.StringVar(&f.opts.ChromeBin, "chrome-bin", "", "Chrome binary to launch (HTML input)")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fs.StringVar(&f.redis, "redis", "", "Redis URL for a shared cache")
}

// resolve merges the config file and the flags that were set.
func (f *optionFlags) resolve(fs *pflag.FlagSet) (pipeline.Options, error) {
	var opts pipeline.Options
	if f.config != "" {
		loaded, err := pipeline.LoadOptions(f.config)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}

	set := map[string]func(){
		"title":        func() { opts.Title = f.opts.Title },
		"logo":         func() { opts.Logo = f.opts.Logo },
		"header-color": func() { opts.HeaderColor = f.opts.HeaderColor },
		"margin":       func() { opts.Margin = f.opts.Margin },
		"format":       func() { opts.Format = f.opts.Format },
		"scale":        func() { opts.Scale = f.opts.Scale },
		"width":        func() { opts.LayoutWidth = f.opts.LayoutWidth },
		"footer":       func() { opts.Footer = f.opts.Footer },
		"max-pixels":   func() { opts.MaxPixels = f.opts.MaxPixels },
		"concurrency":  func() { opts.Concurrency = f.opts.Concurrency },
		"refresh":      func() { opts.Refresh = f.opts.Refresh },
		"chrome-url":   func() { opts.ChromeURL = f.opts.ChromeURL },
		"chrome-bin":   func() { opts.ChromeBin = f.opts.ChromeBin },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if apply, ok := set[fl.Name]; ok {
			apply()
		}
	})
	return opts, nil
}
