package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Contact is the structured schema extracted from meeting transcripts.
// Field names match the client application's contact model.
type Contact struct {
	Name            string           `json:"name,omitempty"`
	Email           string           `json:"email,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	Company         string           `json:"company,omitempty"`
	Status          string           `json:"status,omitempty"`
	Address         string           `json:"address,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	PersonalDetails *PersonalDetails `json:"personalDetails,omitempty"`
	Financials      *Financials      `json:"financials,omitempty"`
	Family          *FamilyInfo      `json:"family,omitempty"`
	RiskProfile     *RiskProfile     `json:"riskProfile,omitempty"`
}

type PersonalDetails struct {
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	OtherDetails string `json:"otherDetails,omitempty"`
}

type Financials struct {
	Income            string `json:"income,omitempty"`
	Expenditure       string `json:"expenditure,omitempty"`
	Assets            string `json:"assets,omitempty"`
	Liabilities       string `json:"liabilities,omitempty"`
	EmergencyFund     string `json:"emergencyFund,omitempty"`
	Investments       string `json:"investments,omitempty"`
	Protection        string `json:"protection,omitempty"`
	RetirementSavings string `json:"retirementSavings,omitempty"`
	EstatePlanning    string `json:"estatePlanning,omitempty"`
}

type FamilyMember struct {
	Name         string `json:"name,omitempty"`
	Age          int    `json:"age,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

type FamilyInfo struct {
	MaritalStatus string         `json:"maritalStatus,omitempty"`
	Spouse        *FamilyMember  `json:"spouse,omitempty"`
	Children      []FamilyMember `json:"children,omitempty"`
	Parents       []FamilyMember `json:"parents,omitempty"`
	Siblings      []FamilyMember `json:"siblings,omitempty"`
}

type RiskProfile struct {
	RiskTolerance        string `json:"riskTolerance,omitempty"`
	InvestmentHorizon    string `json:"investmentHorizon,omitempty"`
	InvestmentObjectives string `json:"investmentObjectives,omitempty"`
	AppetiteForRisk      string `json:"appetiteForRisk,omitempty"`
	InvestmentFocus      string `json:"investmentFocus,omitempty"`
	InvestmentStyle      string `json:"investmentStyle,omitempty"`
	ESGInterests         string `json:"esgInterests,omitempty"`
}

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
)

// ExtractContact pulls structured contact information out of a transcript.
// It returns both the decoded contact and the raw JSON for persistence.
func (c *Client) ExtractContact(ctx context.Context, messages []Message) (*Contact, json.RawMessage, error) {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "%s: %s\n", m.Speaker, m.Text)
	}
	prompt := "Extract contact information from the meeting transcript. " +
		"Return ONLY valid JSON matching our Contact schema.\nTranscript:\n" + sb.String()

	content, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, c.maxTokens, 0)
	if err != nil {
		return nil, nil, err
	}

	content = stripFences(content)
	if content == "" {
		return nil, nil, fmt.Errorf("empty response from extraction service")
	}

	var contact Contact
	if err := json.Unmarshal([]byte(content), &contact); err != nil {
		return nil, nil, fmt.Errorf("failed to decode extracted contact: %w", err)
	}
	return &contact, json.RawMessage(content), nil
}

// stripFences removes a markdown code fence the model sometimes wraps its
// JSON in despite instructions.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = fenceOpenRe.ReplaceAllString(content, "")
		content = fenceCloseRe.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}
