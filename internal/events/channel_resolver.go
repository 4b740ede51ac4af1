package events

import "strings"

const ChannelPrefixProject = "channel:project:"

// ProjectChannelPattern matches every project channel for PSUBSCRIBE.
const ProjectChannelPattern = ChannelPrefixProject + "*"

func ProjectChannel(projectID string) string {
	return ChannelPrefixProject + projectID
}

// ProjectIDFromChannel returns the project id of a project channel.
func ProjectIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, ChannelPrefixProject) {
		return "", false
	}
	id := strings.TrimPrefix(channel, ChannelPrefixProject)
	return id, id != ""
}
