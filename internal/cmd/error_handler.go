package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/config"
	"github.com/imbo/imbo-cli/internal/imageurl"
	"github.com/imbo/imbo-cli/internal/resolve"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var apiErr *api.APIError
	var authErr *api.AuthError
	var bodyErr *api.InvalidResponseBodyError
	var unknownErr *imageurl.UnknownTransformationError
	var ambiguousErr *resolve.AmbiguousError
	var truncatedErr *resolve.TruncatedError

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		msg.WriteString("No Imbo account configured.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: imbo auth login --host URL --user USER --private-key KEY\n")
		msg.WriteString("  - Or set IMBO_HOST, IMBO_USER and IMBO_PRIVATE_KEY\n")

	case errors.As(err, &authErr):
		fmt.Fprintf(&msg, "Authentication failed: %s\n\n", authErr.Reason)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: imbo auth login\n")
		msg.WriteString("  - Check the profile with: imbo auth status\n")

	case errors.As(err, &apiErr):
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n\n", apiErr.StatusCode, apiErr.Message)
		msg.WriteString(suggestionsForStatusCode(apiErr.StatusCode))
		if apiErr.ImboErrorCode != 0 {
			fmt.Fprintf(&msg, "\nImbo error code: %d\n", apiErr.ImboErrorCode)
		}
		if apiErr.RequestID != "" {
			fmt.Fprintf(&msg, "Request ID: %s\n", apiErr.RequestID)
		}

	case errors.As(err, &bodyErr):
		fmt.Fprintf(&msg, "Unexpected response from server (HTTP %d).\n\n", bodyErr.StatusCode)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check that the host points at an Imbo server\n")
		msg.WriteString("  - Use --debug to see the request\n")

	case errors.As(err, &unknownErr):
		fmt.Fprintf(&msg, "Error: %s\n", unknownErr.Error())
		if suggestions := resolve.Suggest(unknownErr.Name, imageurl.Names(), 3); len(suggestions) > 0 {
			fmt.Fprintf(&msg, "\nDid you mean: %s?\n", strings.Join(suggestions, ", "))
		}
		msg.WriteString("Run: imbo transformations to list supported names\n")

	case errors.As(err, &ambiguousErr):
		fmt.Fprintf(&msg, "Error: %s\n\n", ambiguousErr.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Type more characters of the image identifier\n")

	case errors.As(err, &truncatedErr):
		fmt.Fprintf(&msg, "Error: %s\n\n", truncatedErr.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Pass the full image identifier\n")
		msg.WriteString("  - Find it with: imbo images list --all -o json -q '.images[].imageIdentifier'\n")

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check if the Imbo server is running\n")
		msg.WriteString("  - Verify the host: imbo auth status\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the host spelling\n")
		msg.WriteString("  - Verify your DNS settings\n")

	case strings.Contains(err.Error(), "certificate"):
		msg.WriteString("TLS certificate error.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Verify the server's certificate\n")
		msg.WriteString("  - Ensure the host uses https:// correctly\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForStatusCode(code int) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch code {
	case 400:
		suggestions.WriteString("  - Check your request parameters\n")
		suggestions.WriteString("  - Use --debug to see the full request\n")

	case 401:
		suggestions.WriteString("  - The user may not exist on this server\n")
		suggestions.WriteString("  - Run: imbo auth login\n")

	case 403:
		suggestions.WriteString("  - The signature or access token was rejected\n")
		suggestions.WriteString("  - Check the public and private key: imbo auth status\n")
		suggestions.WriteString("  - Make sure the local clock is correct\n")

	case 404:
		suggestions.WriteString("  - The image or user doesn't exist\n")
		suggestions.WriteString("  - Check the identifier: imbo images list\n")

	case 415:
		suggestions.WriteString("  - The server does not accept this image type\n")

	case 500, 502, 503, 504:
		suggestions.WriteString("  - Server error, not your fault\n")
		suggestions.WriteString("  - Check the server with: imbo status\n")

	default:
		suggestions.WriteString("  - Use --debug for more details\n")
	}

	return suggestions.String()
}
