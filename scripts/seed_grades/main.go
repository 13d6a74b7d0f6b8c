// Command seed_grades loads a CSV roster of exam scores into a running API
// instance through the teacher endpoints, printing any freshly issued pins
// so they can be handed out.
//
// CSV columns: student_name, exam, chinese, math, english, science, social, essay
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

type gradeRow struct {
	StudentName string `json:"student_name"`
	Exam        string `json:"exam"`
	Chinese     int    `json:"chinese"`
	Math        int    `json:"math"`
	English     int    `json:"english"`
	Science     int    `json:"science"`
	Social      int    `json:"social"`
	Essay       int    `json:"essay"`
}

type loginResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

type createResponse struct {
	Data struct {
		IssuedPin string `json:"issued_pin"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		base       string
		teacherPin string
		csvPath    string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&teacherPin, "pin", "", "Teacher management pin")
	flag.StringVar(&csvPath, "csv", "grades.csv", "Path to the roster CSV")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if teacherPin == "" {
		log.Fatal("missing -pin")
	}

	rows, err := loadRows(csvPath)
	if err != nil {
		log.Fatalf("failed to load roster: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	token, err := teacherLogin(client, base, teacherPin)
	if err != nil {
		log.Fatalf("teacher login failed: %v", err)
	}

	var created, skipped, failed int
	for _, row := range rows {
		pin, err := createGrade(client, base, token, row)
		switch {
		case err == errDuplicate:
			skipped++
			fmt.Printf("[SKIP] %s / %s: already recorded\n", row.StudentName, row.Exam)
		case err != nil:
			failed++
			fmt.Printf("[FAIL] %s / %s: %v\n", row.StudentName, row.Exam, err)
		case pin != "":
			created++
			fmt.Printf("[OK]   %s / %s (pin issued: %s)\n", row.StudentName, row.Exam, pin)
		default:
			created++
			fmt.Printf("[OK]   %s / %s\n", row.StudentName, row.Exam)
		}
	}

	fmt.Printf("Created: %d, Skipped: %d, Failed: %d\n", created, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadRows(path string) ([]gradeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	rows := make([]gradeRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 8 {
			return nil, fmt.Errorf("row %d: expected 8 columns, got %d", i+2, len(record))
		}
		scores := make([]int, 6)
		for j, raw := range record[2:] {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad score %q", i+2, raw)
			}
			scores[j] = n
		}
		rows = append(rows, gradeRow{
			StudentName: record[0],
			Exam:        record[1],
			Chinese:     scores[0],
			Math:        scores[1],
			English:     scores[2],
			Science:     scores[3],
			Social:      scores[4],
			Essay:       scores[5],
		})
	}
	return rows, nil
}

func teacherLogin(client *http.Client, base, pin string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"pin": pin})
	resp, err := client.Post(base+"/auth/teacher/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Data.AccessToken == "" {
		return "", fmt.Errorf("no access token in response")
	}
	return decoded.Data.AccessToken, nil
}

var errDuplicate = fmt.Errorf("duplicate record")

func createGrade(client *http.Client, base, token string, row gradeRow) (string, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, base+"/grades", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded createResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusConflict {
		return "", errDuplicate
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, decoded.Error.Message)
	}
	return decoded.Data.IssuedPin, nil
}
