package command

import "strings"

// Op 操作类型（固定集合）
type Op int

const (
	OpUnknown Op = iota
	OpHelp
	OpVersion
	OpVerbose
	OpQuiet
	OpFS20
	OpUniroll
	OpInterTechno
	OpScene
	OpGet
	OpSet
	OpWait
	OpQuit
	OpExit
)

var kindNames = map[Op]string{
	OpUnknown:     "UNKNOWN",
	OpHelp:        "HELP",
	OpVersion:     "VERSION",
	OpVerbose:     "VERBOSE",
	OpQuiet:       "QUIET",
	OpFS20:        "FS20",
	OpUniroll:     "UNIROLL",
	OpInterTechno: "INTERTECHNO",
	OpScene:       "SCENE",
	OpGet:         "GET",
	OpSet:         "SET",
	OpWait:        "WAIT",
	OpQuit:        "QUIT",
	OpExit:        "EXIT",
}

var keywords = map[string]Op{
	"HELP":        OpHelp,
	"H":           OpHelp,
	"?":           OpHelp,
	"VERSION":     OpVersion,
	"VERBOSE":     OpVerbose,
	"QUIET":       OpQuiet,
	"FS20":        OpFS20,
	"UNIROLL":     OpUniroll,
	"UNI":         OpUniroll,
	"INTERTECHNO": OpInterTechno,
	"IT":          OpInterTechno,
	"SCENE":       OpScene,
	"GET":         OpGet,
	"SET":         OpSet,
	"WAIT":        OpWait,
	"QUIT":        OpQuit,
	"Q":           OpQuit,
	"EXIT":        OpExit,
	"E":           OpExit,
}

func (k Op) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// LookupOp 按首个 token 查找操作类型（不区分大小写）
func LookupOp(tok string) Op {
	return keywords[strings.ToUpper(tok)]
}
