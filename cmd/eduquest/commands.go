package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eduquest/eduquest/internal/config"
)

// --- account ---

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create a new user account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			return fmt.Errorf("--password is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.account(cmd.Context(), "POST", "/auth/register", map[string]string{
			"username": args[0],
			"email":    args[1],
			"password": password,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Registered user %s", result["username"])
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username-or-email>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			return fmt.Errorf("--password is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.account(cmd.Context(), "POST", "/auth/login", map[string]string{
			"identifier": args[0],
			"password":   password,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if err := config.SaveSessionToken(result["token"]); err != nil {
			return fmt.Errorf("saving session token: %w", err)
		}
		printSuccess("Logged in (session valid until %s)", result["expires_at"])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearSessionToken(); err != nil {
			return err
		}
		printSuccess("Logged out")
		return nil
	},
}

func init() {
	registerCmd.Flags().String("password", "", "password for the new account")
	loginCmd.Flags().String("password", "", "account password")
}

// --- process ---

var mimeByExtension = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".txt":  "text/plain",
	".md":   "text/plain",
}

func detectMIMEType(path string) string {
	if mt, ok := mimeByExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "text/plain"
}

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Upload a document and extract its text",
	Long: `Upload a document and extract its text.

The extracted text becomes the active content for question generation.
Supported inputs: PDF, PNG/JPEG/TIFF images (OCR), and plain text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		mimeType, _ := cmd.Flags().GetString("mime-type")
		if mimeType == "" {
			mimeType = detectMIMEType(args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/documents", map[string]string{
			"content":   base64.StdEncoding.EncodeToString(data),
			"mime_type": mimeType,
		})
		if err != nil {
			return err
		}

		var result struct {
			ContentID    string `json:"content_id"`
			Status       string `json:"status"`
			Error        string `json:"error"`
			Pages        int    `json:"pages"`
			Chars        int    `json:"chars"`
			Deduplicated bool   `json:"deduplicated"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Status != "processed" {
			printError("extraction failed: %s", result.Error)
			return fmt.Errorf("extraction failed")
		}
		if result.Deduplicated {
			printWarning("identical content already uploaded, reusing %s", result.ContentID)
		} else {
			printSuccess("Processed %d page(s), %d characters (content %s)", result.Pages, result.Chars, result.ContentID)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().String("mime-type", "", "override the detected MIME type")
}

// --- generate ---

type questionPayload struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty"`
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate study questions from the active content",
	Long: `Generate study questions from the active content.

Examples:
  eduquest generate --type MCQ --count 5
  eduquest generate --type TRUE_FALSE --difficulty Hard --focus "photosynthesis"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		qType, _ := cmd.Flags().GetString("type")
		count, _ := cmd.Flags().GetInt("count")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		focus, _ := cmd.Flags().GetString("focus")
		contentID, _ := cmd.Flags().GetString("content")

		if qType == "" {
			return fmt.Errorf("--type is required (MCQ, SHORT, TRUE_FALSE, or LONG)")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/questions/generate", map[string]any{
			"content_id": contentID,
			"type":       qType,
			"count":      count,
			"difficulty": difficulty,
			"focus":      focus,
		})
		if err != nil {
			return err
		}

		var questions []questionPayload
		if err := decodeJSON(resp, &questions); err != nil {
			return err
		}

		printQuestions(questions, true)
		printSuccess("Generated %d question(s)", len(questions))
		return nil
	},
}

func init() {
	generateCmd.Flags().String("type", "", "question type: MCQ, SHORT, TRUE_FALSE, or LONG")
	generateCmd.Flags().Int("count", 5, "number of questions to generate")
	generateCmd.Flags().String("difficulty", "", "difficulty hint: Easy, Medium, or Hard")
	generateCmd.Flags().String("focus", "", "topic to focus the questions on")
	generateCmd.Flags().String("content", "", "content ID (defaults to the active content)")
}

// --- questions ---

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List stored questions for the active content",
	RunE: func(cmd *cobra.Command, args []string) error {
		contentID, _ := cmd.Flags().GetString("content")
		showAnswers, _ := cmd.Flags().GetBool("answers")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/questions"
		if contentID != "" {
			path += "?content_id=" + contentID
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var questions []questionPayload
		if err := decodeJSON(resp, &questions); err != nil {
			return err
		}
		if len(questions) == 0 {
			fmt.Println("No questions found.")
			return nil
		}

		printQuestions(questions, showAnswers)
		return nil
	},
}

func init() {
	questionsCmd.Flags().String("content", "", "content ID (defaults to the active content)")
	questionsCmd.Flags().Bool("answers", false, "show answers")
}

func printQuestions(questions []questionPayload, showAnswers bool) {
	optionLabels := "ABCDEFGH"
	for i, q := range questions {
		header := fmt.Sprintf("Q%d [%s]", i+1, q.Type)
		if q.Difficulty != "" {
			header += " (" + q.Difficulty + ")"
		}
		fmt.Printf("\n%s %s\n", bold(header), q.Question)
		for j, opt := range q.Options {
			if j >= len(optionLabels) {
				break
			}
			fmt.Printf("  %c) %s\n", optionLabels[j], opt)
		}
		if showAnswers {
			fmt.Printf("  %s %s\n", cyan("Answer:"), q.Answer)
		}
	}
}

// --- progress ---

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record and review answer attempts",
}

var progressRecordCmd = &cobra.Command{
	Use:   "record <question-id>",
	Short: "Record an answer attempt for a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, _ := cmd.Flags().GetBool("correct")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/progress", map[string]any{
			"question_id": args[0],
			"correct":     correct,
		})
		if err != nil {
			return err
		}

		var result struct {
			Attempts    int     `json:"attempts"`
			SuccessRate float64 `json:"success_rate"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Attempt %d recorded (success rate %.0f%%)", result.Attempts, result.SuccessRate*100)
		return nil
	},
}

var progressShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show answer progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/progress")
		if err != nil {
			return err
		}

		var entries []struct {
			QuestionID  string  `json:"question_id"`
			Attempts    int     `json:"attempts"`
			SuccessRate float64 `json:"success_rate"`
			LastAttempt string  `json:"last_attempt"`
		}
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No attempts recorded yet.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %2d attempts  %3.0f%%  %s\n",
				cyan(shortID(e.QuestionID)),
				e.Attempts,
				e.SuccessRate*100,
				e.LastAttempt,
			)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	progressRecordCmd.Flags().Bool("correct", false, "the answer was correct")
	progressCmd.AddCommand(progressRecordCmd)
	progressCmd.AddCommand(progressShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("%-28s %s\n", k.Key, k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
