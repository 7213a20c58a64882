package protocol

// mergePatch applies a JSON merge patch (RFC 7396) to target. The server
// splits a deal snapshot into a public part and a player-private patch;
// merging the two yields the deal as visible to the requesting player.
// target may be mutated; the merged value is returned.
func mergePatch(target, patch any) any {
	patchMap, ok := patch.(map[string]any)
	if !ok {
		return patch
	}
	targetMap, ok := target.(map[string]any)
	if !ok {
		targetMap = map[string]any{}
	}
	for key, value := range patchMap {
		if value == nil {
			delete(targetMap, key)
			continue
		}
		targetMap[key] = mergePatch(targetMap[key], value)
	}
	return targetMap
}
