package command

import "fmt"

// Reference 命令参考（预格式化文本）
const Reference = "Light Manager commands\r\n" +
	"    GET CLOCK|TIME    Read the current device date and time\r\n" +
	"    GET HOUSECODE     Read the current FS20 housecode\r\n" +
	"    GET TEMP          Read the current device temperature sensor\r\n" +
	"    SET HOUSECODE adr Set the FS20 housecode where\r\n" +
	"                        adr  FS20 housecode (11111111-44444444)\r\n" +
	"    SET CLOCK|TIME [time|AUTO]\r\n" +
	"                      Set the device clock to system time or to <time>\r\n" +
	"                      where time format is MMDDhhmm[[CC]YY][.ss]\r\n" +
	"                      Use AUTO to avoid device automatic correction.\r\n" +
	"\r\n" +
	"Device commands\r\n" +
	"    FS20 adr cmd      Send a FS20 command where\r\n" +
	"                        adr  FS20 address using the format ggss (1111-4444)\r\n" +
	"                        cmd  one of the following commands:\r\n" +
	"                             ON|UP|OPEN      Switches ON or open a jalousie\r\n" +
	"                             OFF|DOWN|CLOSE  Switches OFF or close a jalousie\r\n" +
	"                             TOGGLE          Toggles the current state\r\n" +
	"                             +|BRIGHT        regulate dimmer one step up\r\n" +
	"                             -|DARK          regulate dimmer one step down\r\n" +
	"                             <dim>           absolute dim level 0 (off) to 16 (max)\r\n" +
	"                                             or percentage 0% (off) to 100% (max)\r\n" +
	"    IT code adr [LEARN|DIP] cmd\r\n" +
	"                      Send an InterTechno command where\r\n" +
	"                        code InterTechno housecode (A-P)\r\n" +
	"                        adr  InterTechno channel (1-16)\r\n" +
	"                        LEARN for code learning devices, DIP (default) for\r\n" +
	"                             standard devices with DIP-switches\r\n" +
	"                        cmd  ON|UP|OPEN, OFF|DOWN|CLOSE, TOGGLE, +|BRIGHT, -|DARK\r\n" +
	"                             or <dim>: absolute 0 (off) to 248 (max) or\r\n" +
	"                             percentage 0% to 100% in steps of 6.25%\r\n" +
	"    UNIROLL adr cmd   Send an Uniroll command where\r\n" +
	"                        adr  Uniroll jalousie number (1-16)\r\n" +
	"                        cmd  UP|+, DOWN|- or STOP\r\n" +
	"    SCENE scn         Activate scene <scn> (1-254)\r\n" +
	"\r\n" +
	"System commands\r\n" +
	"    ? or HELP         Prints this help\r\n" +
	"    VERSION           Prints program name and version\r\n" +
	"    VERBOSE           Be verbose (command and result output)\r\n" +
	"    QUIET             Be quiet (single OK, errors only)\r\n" +
	"    EXIT              Disconnect and exit server program\r\n" +
	"    QUIT              Disconnect\r\n" +
	"    WAIT ms           Wait for <ms> milliseconds (0-3600000)\r\n" +
	"\r\n" +
	"Separate multiple commands with ',', ';' or '&'.\r\n"

// Info 产品信息
type Info struct {
	Product string
	Version string
	Build   string
}

// VersionLine "<product> v<version> (build <build>)"
func (i Info) VersionLine() string {
	return fmt.Sprintf("%s v%s (build %s)", i.Product, i.Version, i.Build)
}

// HelpText 完整帮助文本（标题 + 命令参考）
func (i Info) HelpText() string {
	return "\r\n" + i.VersionLine() + " help\r\n\r\n" + Reference
}
