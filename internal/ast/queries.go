package ast

// Per-language capture queries. Each query is implementation-defined per
// spec §4.1; the fixed contract is the capture-name convention
// "<kind>.name" / "<kind>.body" for the ten symbol kinds the extractor
// understands. Languages omit captures for node kinds they don't have
// (e.g. Go has no "class" or "constructor").

const goQuery = `
(function_declaration
  name: (identifier) @function.name) @function.body

(method_declaration
  name: (field_identifier) @method.name) @method.body

(type_declaration
  (type_spec
    name: (type_identifier) @interface.name
    type: (interface_type))) @interface.body

(type_declaration
  (type_spec
    name: (type_identifier) @class.name
    type: (struct_type))) @class.body

(const_spec
  name: (identifier) @enum_member.name) @enum_member.body
`

const pythonQuery = `
(function_definition
  name: (identifier) @function.name) @function.body

(class_definition
  name: (identifier) @class.name) @class.body
`

const javascriptQuery = `
(function_declaration
  name: (identifier) @function.name) @function.body

(method_definition
  name: (property_identifier) @method.name) @method.body

(class_declaration
  name: (identifier) @class.name) @class.body

(variable_declarator
  name: (identifier) @function.name
  value: (arrow_function)) @function.body
`

const typescriptQuery = `
(function_declaration
  name: (identifier) @function.name) @function.body

(method_definition
  name: (property_identifier) @method.name) @method.body

(class_declaration
  name: (type_identifier) @class.name) @class.body

(interface_declaration
  name: (type_identifier) @interface.name) @interface.body

(enum_declaration
  name: (identifier) @enum.name) @enum.body

(enum_assignment
  name: (property_identifier) @enum_member.name) @enum_member.body

(public_field_definition
  name: (property_identifier) @field.name) @field.body
`

const csharpQuery = `
(method_declaration
  name: (identifier) @method.name) @method.body

(constructor_declaration
  name: (identifier) @constructor.name) @constructor.body

(class_declaration
  name: (identifier) @class.name) @class.body

(interface_declaration
  name: (identifier) @interface.name) @interface.body

(enum_declaration
  name: (identifier) @enum.name) @enum.body

(enum_member_declaration
  name: (identifier) @enum_member.name) @enum_member.body

(property_declaration
  name: (identifier) @property.name) @property.body

(namespace_declaration
  name: (identifier) @namespace.name) @namespace.body
`

const rustQuery = `
(function_item
  name: (identifier) @function.name) @function.body

(struct_item
  name: (type_identifier) @class.name) @class.body

(trait_item
  name: (type_identifier) @interface.name) @interface.body

(enum_item
  name: (type_identifier) @enum.name) @enum.body

(mod_item
  name: (identifier) @namespace.name) @namespace.body

(impl_item
  type: (type_identifier) @class.name) @class.body
`
