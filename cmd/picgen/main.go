package main

import (
	"flag"
	"os"

	"github.com/voidwalk/picforge/pkg/config"
	"github.com/voidwalk/picforge/pkg/logging"
)

func main() {
	fs := flag.NewFlagSet("picgen", flag.ExitOnError)
	opts := config.RegisterGenFlags(fs)
	fs.Parse(os.Args[1:])

	log := logging.Default()

	if opts.InputPath == "" {
		log.Error("missing -in")
		os.Exit(2)
	}

	if opts.Blob {
		out := opts.OutputPath
		if out == "" {
			out = opts.InputPath + ".blob"
		}
		if err := packBlob(opts.InputPath, out, opts.Compress, false); err != nil {
			log.Error("%v", err)
			os.Exit(1)
		}
		log.Info("packed blob written to %s", out)
		return
	}

	f, err := os.Open(opts.InputPath)
	if err != nil {
		log.Error("opening %s: %v", opts.InputPath, err)
		os.Exit(1)
	}
	defer f.Close()

	df, err := parseDecl(f)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	chain, err := df.build(opts)
	if err != nil {
		log.Error("declaration file is ill-formed: %v", err)
		os.Exit(1)
	}

	src, err := df.generate(opts.PackageName, chain, opts)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	if opts.OutputPath == "" {
		os.Stdout.WriteString(src)
		return
	}
	if err := os.WriteFile(opts.OutputPath, []byte(src), 0o644); err != nil {
		log.Error("writing %s: %v", opts.OutputPath, err)
		os.Exit(1)
	}
	log.Info("generated table written to %s", opts.OutputPath)
}
