package poster

import "strings"

// GenerateCaption builds the post text. A non-blank custom caption wins over
// the generated "<work>の木彫りです！" line; blank tags fall back to defaults.
func GenerateCaption(workName, customCaption, tags, defaultTags string) string {
	caption := strings.TrimSpace(customCaption)
	if caption == "" {
		if name := strings.TrimSpace(workName); name != "" {
			caption = name + "の木彫りです！"
		}
	}
	finalTags := strings.TrimSpace(tags)
	if finalTags == "" {
		finalTags = defaultTags
	}
	if caption == "" {
		return finalTags
	}
	return caption + "\n\n" + finalTags
}
