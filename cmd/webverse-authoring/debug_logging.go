package main

func debugLog(format string, a ...any) {
	if Debug {
		logger.Sugar().Debugf(format, a...)
	}
}
