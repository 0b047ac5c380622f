package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors       int
	PaymentsPersisted int
	OrdersLinked      int
	ProviderFailures  int
	WebhooksApplied   int
	WebhooksRejected  int
	CRMWarnings       int
	StatusTransitions map[string]int
	PhoneActivities   map[string]int
	ErrorPatterns     map[string]int
}

func main() {
	// Get today's date for log file names
	today := time.Now().Format("2006-01-02")
	logDir := "./logs"

	stats := &LogStats{
		StatusTransitions: make(map[string]int),
		PhoneActivities:   make(map[string]int),
		ErrorPatterns:     make(map[string]int),
	}

	analyzeErrorLogs(filepath.Join(logDir, fmt.Sprintf("error-%s.log", today)), stats)
	analyzeInfoLogs(filepath.Join(logDir, fmt.Sprintf("info-%s.log", today)), stats)

	printReport(stats)
}

func analyzeErrorLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		stats.TotalErrors++

		// Provider calls that failed after the payment row was persisted
		if strings.Contains(line, "Provider call failed") {
			stats.ProviderFailures++
		}

		// Callbacks rejected before any state change
		if strings.Contains(line, "Webhook rejected") {
			stats.WebhooksRejected++
		}

		// Downgraded CRM and notification failures
		if strings.Contains(line, "CRM") || strings.Contains(line, "notification failed") {
			stats.CRMWarnings++
		}

		extractErrorPattern(line, stats)
	}
}

func analyzeInfoLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "Payment persisted") {
			stats.PaymentsPersisted++
		}
		if strings.Contains(line, "linked to provider order") {
			stats.OrdersLinked++
		}
		if strings.Contains(line, "transitioned") {
			stats.WebhooksApplied++
			extractTransition(line, stats)
		}

		extractPhoneActivity(line, stats)
	}
}

func extractPhoneActivity(line string, stats *LogStats) {
	// Extract client phone from log line
	phoneRegex := regexp.MustCompile(`\+\d{10,14}`)
	if phone := phoneRegex.FindString(line); phone != "" {
		stats.PhoneActivities[phone]++
	}
}

func extractTransition(line string, stats *LogStats) {
	// "Payment N transitioned pending -> approved"
	transitionRegex := regexp.MustCompile(`transitioned (\w+) -> (\w+)`)
	if m := transitionRegex.FindStringSubmatch(line); m != nil {
		stats.StatusTransitions[fmt.Sprintf("%s -> %s", m[1], m[2])]++
	}
}

func extractErrorPattern(line string, stats *LogStats) {
	// Extract the main error message
	parts := strings.Split(line, ":")
	if len(parts) > 1 {
		errorMsg := strings.TrimSpace(parts[1])
		stats.ErrorPatterns[errorMsg]++
	}
}

func printReport(stats *LogStats) {
	fmt.Println("\n=== Log Analysis Report ===")
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n1. Payment Statistics:")
	fmt.Printf("   Payments Persisted: %d\n", stats.PaymentsPersisted)
	fmt.Printf("   Provider Orders Linked: %d\n", stats.OrdersLinked)
	fmt.Printf("   Provider Failures: %d\n", stats.ProviderFailures)

	fmt.Println("\n2. Webhook Statistics:")
	fmt.Printf("   Transitions Applied: %d\n", stats.WebhooksApplied)
	fmt.Printf("   Callbacks Rejected: %d\n", stats.WebhooksRejected)
	for transition, count := range stats.StatusTransitions {
		fmt.Printf("   %s: %d\n", transition, count)
	}

	fmt.Println("\n3. Error Statistics:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)
	fmt.Printf("   CRM Warnings: %d\n", stats.CRMWarnings)

	fmt.Println("\n4. Most Active Clients:")
	printTopPhones(stats.PhoneActivities, 5)

	fmt.Println("\n5. Most Common Errors:")
	printTopErrors(stats.ErrorPatterns, 5)
}

func printTopPhones(phones map[string]int, limit int) {
	type phoneActivity struct {
		phone string
		count int
	}

	var activities []phoneActivity
	for phone, count := range phones {
		activities = append(activities, phoneActivity{phone, count})
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].count > activities[j].count
	})

	for i, activity := range activities {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d payments\n", activity.phone, activity.count)
	}
}

func printTopErrors(errors map[string]int, limit int) {
	type errorCount struct {
		error string
		count int
	}

	var errorList []errorCount
	for err, count := range errors {
		errorList = append(errorList, errorCount{err, count})
	}

	sort.Slice(errorList, func(i, j int) bool {
		return errorList[i].count > errorList[j].count
	})

	for i, err := range errorList {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d occurrences\n", err.error, err.count)
	}
}
