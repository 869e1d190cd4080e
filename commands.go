package kihost

// commands.go - The KBI command catalogue: identifiers, frame classes and
// function codes. The wire layout itself lives in frame.go.

// Frame class occupies the high nibble of a frame's type byte.
const (
	ClassCommand      = 0x10
	ClassResponse     = 0x20
	ClassNotification = 0x30
)

// Command-class function codes (low nibble when class == ClassCommand).
const (
	FuncWrite  = 0x0
	FuncRead   = 0x1
	FuncDelete = 0x2
)

// Response-class function codes.
const (
	FuncOK        = 0x0
	FuncValue     = 0x1
	FuncBadParam  = 0x2
	FuncBadCmd    = 0x3
	FuncNotAllow  = 0x4
	FuncMemErr    = 0x5
	FuncCfgErr    = 0x6
	FuncFwuErr    = 0x7
	FuncBusy      = 0x8
)

// Notification-class function codes.
const (
	FuncPingReply      = 0x0
	FuncSockRecv       = 0x1
	FuncNamedPingReply = 0x2
	FuncNamedSockRecv  = 0x3
	FuncDstUnreach     = 0x4
)

// Command identifiers, matching the module's host-interface command table
// (include/cmds.h) value for value: request and response share the cmd
// byte, so these are exactly what a captured wire trace would show.
const (
	CLEAR                        = 0x00
	THREAD_VERSION               = 0x01
	UPTIME                       = 0x02
	RESET                        = 0x03
	AUTO_JOIN_MODE               = 0x04
	STATUS                       = 0x05
	PING                         = 0x06
	IFDOWN                       = 0x07
	IFUP                         = 0x08
	SOCKET_OPEN_CLOSE            = 0x09
	SOFTWARE_VERSION             = 0x0A
	HARDWARE_VERSION             = 0x0B
	SERIAL_NUMBER                = 0x0C
	EXTENDED_MAC_ADDRESS         = 0x0D
	EUI_64_ADDRESS               = 0x0E
	LOW_POWER_MODE               = 0x0F
	TX_POWER_LEVEL               = 0x10
	PAN_ID                       = 0x11
	CHANNEL                      = 0x12
	EXTENDED_PAN_ID              = 0x13
	NETWORK_NAME                 = 0x14
	MASTER_KEY                   = 0x15
	COMMISSIONING_CREDENTIAL     = 0x16
	JOINER_CREDENTIAL            = 0x17
	JOINER_MANAGEMENT            = 0x18
	ROLE                         = 0x19
	SHORT_MAC_ADDRESS            = 0x1A
	COMMISSIONER_ACTIVATION      = 0x1B
	MESH_LOCAL_PREFIX            = 0x1C
	MAXIMUM_NUMBER_OF_CHILDREN   = 0x1D
	TIMEOUT                      = 0x1E
	EXT_PAN_ID_FILTER            = 0x1F
	IP_ADDRESS                   = 0x20
	JOINER_PORT                  = 0x21
	HASH_EUI64_ADDRESS           = 0x22
	POLLING_RATE                 = 0x23
	OOB_COMMISSIONING_MODE       = 0x24
	STEERING_DATA_MODE           = 0x25
	PREFIX                       = 0x26
	ROUTE                        = 0x27
	ROUTESERVICE                 = 0x28
	PARENT_INFORMATION           = 0x29
	ROUTER_TABLE                 = 0x2A
	LEADER_DATA                  = 0x2B
	NETWORK_DATA                 = 0x2C
	STATISTICS                   = 0x2D
	CHILD_TABLE                  = 0x2E
	SOCKET_SEND                  = 0x2F
	FIRMWARE_UPDATE              = 0x30
	HARDWARE_MODE                = 0x31
	LED_MODE                     = 0x32
	VENDOR_NAME                  = 0x33
	VENDOR_MODEL                 = 0x34
	VENDOR_DATA                  = 0x35
	VENDOR_SOFTWARE_VERSION      = 0x36
	ACTIVE_TIMESTAMP             = 0x37
	NAMED_PING                   = 0x38
	NAMED_SOCKET_SEND            = 0x39
	SERVICES_STATUS              = 0x3A
	PROVISIONING_URL             = 0x3B
	COMMISSIONER_SESSION_ID      = 0x3C
	MGMT_PENDING_GET_REQ         = 0x3D
	MGMT_PENDING_SET_REQ         = 0x3E
	MGMT_ACTIVE_GET_REQ          = 0x3F
	MGMT_ACTIVE_SET_REQ          = 0x40
	MGMT_COMMISSIONER_GET_REQ    = 0x41
	MGMT_COMMISSIONER_SET_REQ    = 0x42
	MGMT_PANID_QUERY_REQ         = 0x43
)

// Status values returned by a STATUS read, tracking the module's join
// state machine.
const (
	StatusNoneNotConfigured = 0
	StatusBooting           = 1
	StatusDiscovering       = 2
	StatusCommissioning     = 3
	StatusAttaching         = 4
	STATUS_JOINED           = 5
	StatusRebooting         = 6
	StatusChanging          = 7
	StatusClearing          = 10
)

// Device role values returned by a ROLE read/reported by the module.
const (
	RoleNone    = 0
	RoleRouter  = 1
	RoleREED    = 2
	RoleFED     = 3
	ROLE_MED    = 4
	RoleSED     = 5
	ROLE_LEADER = 6
)

// MaxPayloadLen is the largest payload a single KBI frame may carry.
const MaxPayloadLen = 1268

// FrameHeaderLen is the number of bytes preceding the payload: len(2) + typ(1) + cmd(1) + cks(1).
const FrameHeaderLen = 5

// MaxFrameLen is the largest unstuffed frame, header included.
const MaxFrameLen = FrameHeaderLen + MaxPayloadLen
