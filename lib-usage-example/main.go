package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sw33tLie/vendorscope/pkg/classify"
	"github.com/sw33tLie/vendorscope/pkg/evidence"
	"github.com/sw33tLie/vendorscope/pkg/whttp"
)

func main() {
	// Usage: go run *.go -website "https://example.com"

	websiteFlag := flag.String("website", "", "Vendor website to check")
	intervalFlag := flag.Duration("interval", 2*time.Second, "Minimum delay between two requests to the website")

	// Parse the command-line flags
	flag.Parse()

	if *websiteFlag == "" {
		fmt.Println("Website is required. Please provide it using -website flag.")
		return
	}

	client, err := whttp.NewClient(whttp.ClientOptions{HostInterval: *intervalFlag})
	if err != nil {
		fmt.Println(err)
		return
	}

	// Collect the evidence, then classify it the same way the pipeline does
	report := evidence.NewCollector(client, evidence.Options{}).Collect(context.Background(), "example", *websiteFlag, time.Now().UTC().Format("2006-01-02"))
	result := classify.Apply(report)

	fmt.Println("live:", report.WebsiteLive, "pages:", report.PagesChecked)
	fmt.Println("ketamine:", report.KetamineEvidence.Count, report.KetamineEvidence.Matches)
	fmt.Println("psychiatry:", report.PsychiatryEvidence.Count, report.PsychiatryEvidence.Matches)
	fmt.Println("pricing:", report.PricingFound)
	fmt.Println(result.Report.Status, result.Classification.Category, result.Classification.Confidence, "-", result.Classification.Reason)
}
