package ai

import (
	"encoding/json"
	"fmt"

	"chatcal/internal/models"
	"chatcal/internal/temporal"
)

// ExtractionSystemPrompt frames the extraction call.
const ExtractionSystemPrompt = "You are an AI assistant that extracts calendar event information and generates Google Calendar API calls."

// ExtractionMessages builds the messages asking the completion service to turn reply,
// read in the light of transcript, into event JSON resolved against tctx.
func ExtractionMessages(reply string, transcript models.Transcript, tctx temporal.Context) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: ExtractionSystemPrompt},
		{Role: models.RoleUser, Content: ExtractionPrompt(reply, transcript, tctx)},
	}
}

// ExtractionPrompt renders the extraction instructions.
func ExtractionPrompt(reply string, transcript models.Transcript, tctx temporal.Context) string {
	if transcript == nil {
		transcript = models.Transcript{}
	}
	history, err := json.Marshal(transcript)
	if err != nil {
		history = []byte("[]")
	}

	return fmt.Sprintf(`Based on the following text and conversation history, extract the necessary information for scheduling events and generate Google Calendar API calls in JSON format.

Text: %s

Conversation history: %s

Current date and time: %s
Local timezone: %s

For each event, generate a JSON object with the following structure:
{
   "summary": "Event title",
   "start": {"dateTime": "YYYY-MM-DDTHH:MM:SS", "timeZone": "%[4]s"},
   "end": {"dateTime": "YYYY-MM-DDTHH:MM:SS", "timeZone": "%[4]s"},
   "description": "Event description"
}

Do not include a 'calendarId' field in the JSON object.
If multiple events are mentioned, generate multiple JSON objects in a list.
If no event scheduling is detected, return an empty list.

Ensure your response is valid JSON. Do not include any explanatory text or code block formatting.
Use the provided current date and time as reference for any relative dates or times (e.g., "today", "tomorrow", "next Friday", "in 2 hours").
Always use the local timezone provided.
Adjust all dates and times to be in the future relative to the current date and time provided.
For any ambiguous times (e.g., "3 PM" without a date), assume it's for the next available time after the current date and time.
`, reply, history, tctx.Reference.Format("2006-01-02 15:04:05 MST (Monday)"), tctx.Zone)
}
