// Copyright 2026 The Privesc Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report generates HTML and signed JSON reports from check audit events.
package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/peg/privesc/internal/audit"
)

// ReportData contains all the data needed to generate an HTML report.
type ReportData struct {
	Title            string
	GeneratedAt      time.Time
	StartTime        time.Time
	EndTime          time.Time
	ChainValid       bool
	TotalEvents      int
	EscalatedEvents  int
	ClearEvents      int
	ErroredEvents    int
	EscalatedPercent float64
	Timeline         []TimelineEntry
	TopPaths         []PathCount
	Events           []ReportEvent
}

// TimelineEntry represents an hour's worth of events for the timeline chart.
type TimelineEntry struct {
	Hour      string
	Escalated int
	Clear     int
	Total     int
	MaxWidth  int
}

// PathCount represents the count of a specific escalating path.
type PathCount struct {
	Path  string
	Count int
}

// ReportEvent represents an event formatted for display in the report.
type ReportEvent struct {
	Time       string
	Escalated  bool
	Path       string
	Capability string
	DurationUS int64
	Err        string
	CSSClass   string
}

// GenerateHTMLReport generates a self-contained HTML report from audit events.
func GenerateHTMLReport(events []audit.Event, startTime, endTime time.Time, writer io.Writer) error {
	data, err := prepareReportData(events, startTime, endTime)
	if err != nil {
		return fmt.Errorf("prepare report data: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse HTML template: %w", err)
	}

	if err := tmpl.Execute(writer, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	return nil
}

// ReadEventsFromDir reads all .jsonl files from the given directory.
func ReadEventsFromDir(auditDir string) ([]audit.Event, error) {
	var allEvents []audit.Event

	files, err := filepath.Glob(filepath.Join(auditDir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("glob audit files: %w", err)
	}

	for _, file := range files {
		events, _, err := audit.ReadEventsFromOffset(file, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", file, err)
			continue
		}
		allEvents = append(allEvents, events...)
	}

	sort.Slice(allEvents, func(i, j int) bool {
		return allEvents[i].Timestamp.Before(allEvents[j].Timestamp)
	})

	return allEvents, nil
}

// FilterEventsByTime filters events to only include those within the time window.
func FilterEventsByTime(events []audit.Event, since time.Duration) []audit.Event {
	cutoff := time.Now().Add(-since)
	var filtered []audit.Event

	for _, event := range events {
		if event.Timestamp.After(cutoff) {
			filtered = append(filtered, event)
		}
	}

	return filtered
}

func prepareReportData(events []audit.Event, startTime, endTime time.Time) (*ReportData, error) {
	data := &ReportData{
		Title:       "Privesc Check Report",
		GeneratedAt: time.Now(),
		StartTime:   startTime,
		EndTime:     endTime,
		TotalEvents: len(events),
	}

	data.ChainValid = verifyHashChain(events)

	pathCounts := make(map[string]int)
	timelineCounts := make(map[string]map[string]int)

	for _, event := range events {
		if event.Err != "" {
			data.ErroredEvents++
		} else if event.Escalated {
			data.EscalatedEvents++
		} else {
			data.ClearEvents++
		}

		if event.Escalated && event.Witness != nil {
			pathCounts[event.Witness.Path]++
		}

		hour := event.Timestamp.Format("2006-01-02 15:00")
		if timelineCounts[hour] == nil {
			timelineCounts[hour] = make(map[string]int)
		}
		if event.Escalated {
			timelineCounts[hour]["escalated"]++
		} else {
			timelineCounts[hour]["clear"]++
		}
	}

	if data.TotalEvents > 0 {
		data.EscalatedPercent = float64(data.EscalatedEvents) / float64(data.TotalEvents) * 100
	}

	data.Timeline = prepareTimeline(timelineCounts)
	data.TopPaths = prepareTopPaths(pathCounts)
	data.Events = prepareEventList(events)

	return data, nil
}

// verifyHashChain checks if the hash chain is valid across all events.
func verifyHashChain(events []audit.Event) bool {
	for i, event := range events {
		valid, err := event.VerifyHash()
		if err != nil || !valid {
			return false
		}

		if i > 0 {
			prevHash := events[i-1].Hash
			if event.PrevHash != prevHash {
				return false
			}
		}
	}
	return true
}

func prepareTimeline(timelineCounts map[string]map[string]int) []TimelineEntry {
	var timeline []TimelineEntry
	maxTotal := 0

	hours := make([]string, 0, len(timelineCounts))
	for hour := range timelineCounts {
		hours = append(hours, hour)
	}
	sort.Strings(hours)

	for _, hour := range hours {
		counts := timelineCounts[hour]
		escalated := counts["escalated"]
		clear := counts["clear"]
		total := escalated + clear

		if total > maxTotal {
			maxTotal = total
		}

		timeline = append(timeline, TimelineEntry{
			Hour:      hour,
			Escalated: escalated,
			Clear:     clear,
			Total:     total,
		})
	}

	for i := range timeline {
		if maxTotal > 0 {
			timeline[i].MaxWidth = (timeline[i].Total * 100) / maxTotal
		}
	}

	return timeline
}

func prepareTopPaths(pathCounts map[string]int) []PathCount {
	var paths []PathCount
	for path, count := range pathCounts {
		paths = append(paths, PathCount{Path: path, Count: count})
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Count > paths[j].Count
	})

	if len(paths) > 10 {
		paths = paths[:10]
	}

	return paths
}

func prepareEventList(events []audit.Event) []ReportEvent {
	var reportEvents []ReportEvent

	for _, event := range events {
		var path, capability string
		if event.Witness != nil {
			path = event.Witness.Path
			capability = event.Witness.Capability
		}

		cssClass := "decision-clear"
		if event.Err != "" {
			cssClass = "decision-error"
		} else if event.Escalated {
			cssClass = "decision-escalated"
		}

		reportEvents = append(reportEvents, ReportEvent{
			Time:       event.Timestamp.Format("2006-01-02 15:04:05"),
			Escalated:  event.Escalated,
			Path:       path,
			Capability: capability,
			DurationUS: event.DurationUS,
			Err:        event.Err,
			CSSClass:   cssClass,
		})
	}

	return reportEvents
}

// htmlTemplate is the complete HTML template for the check report.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif;
            background-color: #0d1117;
            color: #c9d1d9;
            line-height: 1.5;
            min-height: 100vh;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
        }

        .header {
            text-align: center;
            margin-bottom: 30px;
            padding: 20px;
            background-color: #161b22;
            border-radius: 8px;
        }

        .header h1 {
            font-size: 2em;
            margin-bottom: 10px;
        }

        .header .meta {
            color: #7d8590;
            font-size: 0.9em;
        }

        .chain-status {
            display: inline-block;
            padding: 4px 8px;
            border-radius: 4px;
            font-size: 0.8em;
            margin-left: 10px;
        }

        .chain-valid {
            background-color: #238636;
            color: white;
        }

        .chain-broken {
            background-color: #da3633;
            color: white;
        }

        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            margin-bottom: 30px;
        }

        .card {
            background-color: #161b22;
            border-radius: 8px;
            padding: 20px;
            text-align: center;
            border-left: 4px solid #21262d;
        }

        .card.total { border-left-color: #58a6ff; }
        .card.clear { border-left-color: #3fb950; }
        .card.escalated { border-left-color: #f85149; }
        .card.errored { border-left-color: #d29922; }

        .card-number {
            font-size: 2em;
            font-weight: bold;
            margin-bottom: 5px;
        }

        .card-label {
            color: #7d8590;
            font-size: 0.9em;
        }

        .card-percent {
            font-size: 0.8em;
            color: #7d8590;
            margin-top: 5px;
        }

        .section {
            background-color: #161b22;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 30px;
        }

        .section h2 {
            margin-bottom: 20px;
            font-size: 1.3em;
        }

        .timeline {
            margin-bottom: 20px;
        }

        .timeline-entry {
            margin-bottom: 8px;
        }

        .timeline-hour {
            font-size: 0.8em;
            color: #7d8590;
            margin-bottom: 4px;
        }

        .timeline-bar {
            height: 20px;
            border-radius: 3px;
            overflow: hidden;
            display: flex;
        }

        .bar-segment {
            height: 100%;
        }

        .bar-clear { background-color: #3fb950; }
        .bar-escalated { background-color: #f85149; }

        .timeline-counts {
            font-size: 0.8em;
            color: #7d8590;
            margin-top: 2px;
        }

        table {
            width: 100%;
            border-collapse: collapse;
        }

        th, td {
            padding: 8px 12px;
            text-align: left;
            border-bottom: 1px solid #21262d;
        }

        th {
            background-color: #21262d;
            font-weight: 600;
            cursor: pointer;
            user-select: none;
        }

        th:hover {
            background-color: #2d333b;
        }

        tr:hover {
            background-color: #21262d;
        }

        .path {
            font-family: "SF Mono", Monaco, "Cascadia Code", "Roboto Mono", Consolas, "Courier New", monospace;
            font-size: 0.85em;
        }

        .decision {
            padding: 2px 6px;
            border-radius: 3px;
            font-size: 0.8em;
            font-weight: 500;
        }

        .decision-clear {
            background-color: #238636;
            color: white;
        }

        .decision-escalated {
            background-color: #da3633;
            color: white;
        }

        .decision-error {
            background-color: #bf8700;
            color: white;
        }

        @media (max-width: 768px) {
            .container {
                padding: 10px;
            }

            .summary {
                grid-template-columns: repeat(2, 1fr);
            }

            table {
                font-size: 0.9em;
            }

            th, td {
                padding: 6px 8px;
            }
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
            <div class="meta">
                {{.StartTime.Format "2006-01-02 15:04"}} &mdash; {{.EndTime.Format "2006-01-02 15:04"}}
                <br>
                Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}
                <span class="chain-status {{if .ChainValid}}chain-valid{{else}}chain-broken{{end}}">
                    {{if .ChainValid}}Chain Valid{{else}}Chain Broken{{end}}
                </span>
            </div>
        </div>

        <div class="summary">
            <div class="card total">
                <div class="card-number">{{.TotalEvents}}</div>
                <div class="card-label">Total Checks</div>
            </div>
            <div class="card clear">
                <div class="card-number">{{.ClearEvents}}</div>
                <div class="card-label">Clear</div>
            </div>
            <div class="card escalated">
                <div class="card-number">{{.EscalatedEvents}}</div>
                <div class="card-label">Escalated</div>
                <div class="card-percent">{{printf "%.1f%%" .EscalatedPercent}}</div>
            </div>
            <div class="card errored">
                <div class="card-number">{{.ErroredEvents}}</div>
                <div class="card-label">Errored</div>
            </div>
        </div>

        {{if .Timeline}}
        <div class="section">
            <h2>Timeline</h2>
            <div class="timeline">
                {{range .Timeline}}
                <div class="timeline-entry">
                    <div class="timeline-hour">{{.Hour}}</div>
                    <div class="timeline-bar" style="width: {{.MaxWidth}}%;">
                        {{if .Clear}}<div class="bar-segment bar-clear" style="flex: {{.Clear}};"></div>{{end}}
                        {{if .Escalated}}<div class="bar-segment bar-escalated" style="flex: {{.Escalated}};"></div>{{end}}
                    </div>
                    <div class="timeline-counts">
                        {{if .Clear}}Clear: {{.Clear}} {{end}}
                        {{if .Escalated}}Escalated: {{.Escalated}}{{end}}
                    </div>
                </div>
                {{end}}
            </div>
        </div>
        {{end}}

        {{if .TopPaths}}
        <div class="section">
            <h2>Top Escalating Paths</h2>
            <table>
                <thead>
                    <tr>
                        <th>Path</th>
                        <th>Count</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .TopPaths}}
                    <tr>
                        <td class="path">{{.Path}}</td>
                        <td>{{.Count}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>
        {{end}}

        <div class="section">
            <h2>Full Check Log</h2>
            <table id="eventTable">
                <thead>
                    <tr>
                        <th onclick="sortTable(0)">Time</th>
                        <th onclick="sortTable(1)">Result</th>
                        <th onclick="sortTable(2)">Path</th>
                        <th onclick="sortTable(3)">Capability</th>
                        <th onclick="sortTable(4)">Duration (us)</th>
                        <th onclick="sortTable(5)">Error</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Events}}
                    <tr>
                        <td>{{.Time}}</td>
                        <td><span class="decision {{.CSSClass}}">{{if .Err}}error{{else if .Escalated}}escalated{{else}}clear{{end}}</span></td>
                        <td class="path">{{.Path}}</td>
                        <td>{{.Capability}}</td>
                        <td>{{.DurationUS}}</td>
                        <td>{{.Err}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>
    </div>

    <script>
        function sortTable(columnIndex) {
            const table = document.getElementById('eventTable');
            const tbody = table.querySelector('tbody');
            const rows = Array.from(tbody.querySelectorAll('tr'));

            const isAscending = table.dataset.sortOrder !== 'asc' || table.dataset.sortColumn !== columnIndex.toString();

            rows.sort((a, b) => {
                const aVal = a.cells[columnIndex].textContent.trim();
                const bVal = b.cells[columnIndex].textContent.trim();

                if (isAscending) {
                    return aVal.localeCompare(bVal);
                } else {
                    return bVal.localeCompare(aVal);
                }
            });

            tbody.innerHTML = '';
            rows.forEach(row => tbody.appendChild(row));

            table.dataset.sortOrder = isAscending ? 'asc' : 'desc';
            table.dataset.sortColumn = columnIndex.toString();
        }
    </script>
</body>
</html>`
