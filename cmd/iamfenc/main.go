// SPDX-License-Identifier: EPL-2.0

// Command iamfenc encodes the IA sequence described by a YAML metadata
// file. Each audio element reads its samples from its input_file, which is
// resolved against -input-dir.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ik5/iamf"
	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/metadata"
	"github.com/ik5/iamf/metrics"
)

var (
	metadataPath       = flag.String("metadata", "", "YAML metadata describing the sequence (required)")
	outputPath         = flag.String("output", "out.iamf", "Output IAMF file")
	inputDir           = flag.String("input-dir", "", "Directory input files are resolved against (default: the metadata file's directory)")
	renderDir          = flag.String("render-dir", "", "Write the decoded samples of every audio element as WAV files to this directory")
	temporalDelimiters = flag.Bool("temporal-delimiters", false, "Write a temporal delimiter OBU before every temporal unit")
	fixedLebSize       = flag.Int("fixed-leb-size", 0, "Encode every ULEB128 field on this many bytes (1-8); 0 uses the minimum")
	metricsAddr        = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while encoding")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *metadataPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(); err != nil {
		log.Fatalf("iamfenc: %v", err)
	}
}

func run() error {
	md, err := metadata.LoadFile(*metadataPath)
	if err != nil {
		return err
	}

	leb := bitbuffer.NewLebGenerator()
	if *fixedLebSize > 0 {
		if leb, err = bitbuffer.NewFixedSizeLebGenerator(*fixedLebSize); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)
	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr, reg)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	enc, err := iamf.New(md,
		iamf.WithLogger(log.Default()),
		iamf.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	dir := *inputDir
	if dir == "" {
		dir = filepath.Dir(*metadataPath)
	}

	out, err := os.Create(*outputPath)
	if err != nil {
		return err
	}

	w := iamf.NewSequenceWriter(out, leb)
	w.TemporalDelimiters = *temporalDelimiters

	s := &session{
		md:        md,
		enc:       enc,
		writer:    w,
		inputDir:  dir,
		renderDir: *renderDir,
	}
	err = s.encode()
	err = errors.Join(err, s.close(), out.Close())
	if err != nil {
		return err
	}

	log.Printf("wrote %d bytes to %s", w.Written(), *outputPath)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	return srv
}
