package kernel

// SubjectID is the identity provider's stable id for an authenticated email.
type SubjectID string

func NewSubjectID(id string) SubjectID { return SubjectID(id) }
func (s SubjectID) String() string     { return string(s) }
func (s SubjectID) IsEmpty() bool      { return string(s) == "" }

// EmployerID equals the SubjectID of the identity that created the employer.
type EmployerID string

func NewEmployerID(id string) EmployerID { return EmployerID(id) }
func (e EmployerID) String() string      { return string(e) }
func (e EmployerID) IsEmpty() bool       { return string(e) == "" }

type CompanyID string

func NewCompanyID(id string) CompanyID { return CompanyID(id) }
func (c CompanyID) String() string     { return string(c) }
func (c CompanyID) IsEmpty() bool      { return string(c) == "" }

// DeviceID identifies one browser. It scopes client-durable state such as
// the pending signup intent.
type DeviceID string

func NewDeviceID(id string) DeviceID { return DeviceID(id) }
func (d DeviceID) String() string    { return string(d) }
func (d DeviceID) IsEmpty() bool     { return string(d) == "" }
