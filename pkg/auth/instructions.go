package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide writes step-by-step instructions for obtaining a bearer token
func ShowTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "TWITTER API BEARER TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "twitsent calls the v2 search endpoints with an app-only bearer token.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Sign in to the developer portal")
	fmt.Fprintln(w, "   - Go to https://developer.twitter.com/en/portal/dashboard")
	fmt.Fprintln(w, "   - Create a project and an app inside it if you have none")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 2: Generate the token")
	fmt.Fprintln(w, "   - Open the app's 'Keys and tokens' tab")
	fmt.Fprintln(w, "   - Under 'Authentication Tokens', generate the Bearer Token")
	fmt.Fprintln(w, "   - Copy it now; the portal shows it only once")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 3: Pick the access tier")
	fmt.Fprintln(w, "   - Standard access searches the last 7 days (recent search)")
	fmt.Fprintln(w, "   - Academic/elevated access searches the full archive; log in with --elevated")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SECURITY:")
	fmt.Fprintln(w, "   - The token grants your app's full read quota; never share it")
	fmt.Fprintln(w, "   - Stored tokens live in the system keyring or an encrypted file")
	fmt.Fprintln(w, "   - TWITSENT_BEARER_TOKEN overrides stored tokens for the default account")
	fmt.Fprintln(w, rule)
}

// ShowQuickTokenGuide writes a one-line reminder
func ShowQuickTokenGuide(w io.Writer) {
	fmt.Fprintln(w, "Developer portal -> your app -> Keys and tokens -> Bearer Token. Run 'twitsent auth login --help' for details.")
}
