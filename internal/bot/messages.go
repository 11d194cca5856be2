package bot

import (
	"fmt"
	"html"
	"strings"

	"echoverse/pkg/models"
)

const (
	msgWelcome = `<b>EchoVerse</b> 🎧

Send me a text or a .txt file and I will rewrite it in the selected tone.

/tone - choose the rewrite tone
/style - choose the narration style
/audio - narrate the latest rewrite
/insights - text statistics of the latest rewrite
/reset - forget everything`

	msgRewriteFirst    = "✍️ Rewrite a text first: send me a message or a .txt file."
	msgEmptyText       = "✍️ The text is empty. Send me some words to rewrite."
	msgInvalidEncoding = "⚠️ The file must be UTF-8 encoded plain text."
	msgUnsupportedFile = "⚠️ Only .txt files are supported."
	msgFileTooLarge    = "⚠️ The file is too large."
	msgDownloadFailed  = "⚠️ Could not download the file, please try again."
	msgRateLimited     = "⚠️ Too many requests. Please wait a minute."
	msgUnknownCommand  = "🤷 Unknown command. Try /help."
	msgInternalError   = "⚠️ Something went wrong, please try again."
	msgTTSDisabled     = "🔇 Narration is not configured."
	msgReset           = "🧹 Session cleared."
	msgChooseTone      = "🎭 Choose the rewrite tone:"
	msgChooseStyle     = "🎙 Choose the narration style:"
	msgRewriting       = "⏳ Rewriting..."
	msgNarrating       = "🎵 Generating audio..."
)

func toneSelected(tone models.Tone) string {
	return fmt.Sprintf("🎭 Tone set to <b>%s</b>.", html.EscapeString(string(tone)))
}

func styleSelected(style models.NarrationStyle) string {
	return fmt.Sprintf("%s Narration style set to <b>%s</b>.", style.Emoji(), html.EscapeString(string(style)))
}

func degradedNotice() string {
	return "⚠️ The rewrite models are unavailable right now, here is your original text:"
}

func narrationFailed(err error) string {
	return "⚠️ Could not generate audio: " + err.Error()
}

func audioCaption(style models.NarrationStyle) string {
	return fmt.Sprintf("%s %s narration", style.Emoji(), style)
}

func insightsText(chart string, r *models.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Text insights</b>\n")
	sb.WriteString("<pre>")
	sb.WriteString(html.EscapeString(chart))
	sb.WriteString("</pre>")
	fmt.Fprintf(&sb, "\nWords: %d, unique: %d, avg sentence: %.2f, complexity: %.2f",
		r.Words, r.UniqueWords, r.AvgSentenceLen, r.Complexity)
	return sb.String()
}
