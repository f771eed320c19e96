/*
Package domain defines the vocabulary shared by every transferdesk component.

# Actions

Every change travels as an Action through the dispatch bus. The catalog is split
into triggers (*_REQUEST, issued by hosts), outcomes (*_SUCCESS, *_FAILURE,
LOGIN_PARTIAL, LOGOUT), entity updates (UPDATE_*) and UI signals
(ADD_FLASH_MESSAGE, NAVIGATE).

# Entities

Entities are kept as Records keyed by id inside Tables. Records keep the fields
exactly as the API sent them so that partial payloads can be overlaid without
losing unrelated fields; typed views (User, TransferAccount, CreditTransfer) are
decoded on read with Decode.

# Errors

ValidationError, TransportError and DomainError form the error taxonomy.
Normalize flattens any of them into the FlowError {message} shape attached to
failure actions.
*/
package domain
