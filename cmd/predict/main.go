package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"pricetier/internal/client"
	"pricetier/internal/logger"
	"pricetier/internal/model"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8000", "prediction service base URL")
		modelPath = flag.String("model", "", "model file name inside the service's model folder")
		input     = flag.String("input", "-", "listing JSON file, - for stdin")
		timeout   = flag.Duration("timeout", 10*time.Second, "request timeout")
	)
	flag.Parse()

	zl, err := logger.NewLogger("warn", "console", "pricetier-predict")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "-model is required")
		flag.Usage()
		os.Exit(2)
	}

	src := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			zl.Fatal("Failed to open input", zap.Error(err))
		}
		defer f.Close()
		src = f
	}

	var listing model.ListingInput
	if err := json.NewDecoder(src).Decode(&listing); err != nil {
		zl.Fatal("Failed to decode listing", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*baseURL, *timeout, zl)
	resp, err := c.Predict(ctx, &model.PredictRequest{
		InputData: listing,
		ModelFile: model.ModelToLoad{ModelPath: *modelPath},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "prediction failed (%s): %v\n", model.KindOf(err), err)
		os.Exit(1)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	_ = out.Encode(resp)
}
