package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide writes step-by-step instructions for copying the
// pixiv session cookie out of a browser
func ShowCookieExtractionGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "📚 PIXIV COOKIE EXTRACTION GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Bookmarks, private works and R-18 content need your pixiv session cookie.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🌐 STEP 1: Log in at https://www.pixiv.net")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔧 STEP 2: Open Developer Tools")
	fmt.Fprintln(w, "   • Chrome/Edge/Brave/Firefox: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Fprintln(w, "   • Safari: Enable Developer menu in Preferences, then Cmd+Option+I")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "📡 STEP 3: Go to the Network tab and refresh the page (F5)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🍪 STEP 4: Copy the Cookie header")
	fmt.Fprintln(w, "   1. Click any request to 'www.pixiv.net'")
	fmt.Fprintln(w, "   2. Under 'Request Headers' find the 'Cookie:' line")
	fmt.Fprintln(w, "   3. Copy the whole value. A leading 'Cookie: ' is stripped automatically.")
	fmt.Fprintln(w, "   It must contain PHPSESSID; __utmv is used to find your user id.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • The cookie gives FULL access to your pixiv account")
	fmt.Fprintln(w, "   • NEVER share it with anyone")
	fmt.Fprintln(w, "   • Use --backend keyring or encrypted to keep it out of the plain user database")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// ShowQuickExtractGuide writes a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "🍪 Quick Guide: F12 → Network tab → Refresh → Click any www.pixiv.net request → Headers → Cookie")
	fmt.Fprintln(w, "   Need: the whole Cookie header, including PHPSESSID")
}
